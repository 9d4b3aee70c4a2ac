package state

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mkweon/asset-tracker/client"
	"github.com/mkweon/asset-tracker/internal/model"
)

// DefaultPageSize is how many period points one page requests.
const DefaultPageSize = 10

// PeriodStore holds the paginated totals series for one period granularity.
type PeriodStore struct {
	mu     sync.Mutex
	client *client.Client
	assets *AssetStore

	period   string
	points   []model.PeriodPointDetail
	columns  []model.AssetColumn
	offset   int
	hasMore  bool
	pageSize int

	loading bool

	// generation discards responses of superseded loads: a period change or
	// reload bumps it, and a page arriving with an older generation is
	// dropped instead of overwriting newer state.
	generation int

	// initialized guards against a redundant period-change reload firing
	// during the concurrent initial load.
	initialized bool
}

// NewPeriodStore creates a period store starting on the daily series.
func NewPeriodStore(c *client.Client, assets *AssetStore) *PeriodStore {
	return &PeriodStore{
		client:   c,
		assets:   assets,
		period:   model.PeriodDaily,
		pageSize: DefaultPageSize,
	}
}

// Period returns the current granularity.
func (s *PeriodStore) Period() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// Points returns the loaded window, newest first.
func (s *PeriodStore) Points() []model.PeriodPointDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := make([]model.PeriodPointDetail, len(s.points))
	copy(points, s.points)
	return points
}

// Columns returns the assets appearing anywhere in the loaded window.
func (s *PeriodStore) Columns() []model.AssetColumn {
	s.mu.Lock()
	defer s.mu.Unlock()
	columns := make([]model.AssetColumn, len(s.columns))
	copy(columns, s.columns)
	return columns
}

// HasMore reports whether another page may exist. Derived purely from the
// last page's length, not a server-side count.
func (s *PeriodStore) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Loading reports whether a page load is in flight.
func (s *PeriodStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Init runs the initial load: the summary and the first page are
// independent, so they are fetched concurrently.
func (s *PeriodStore) Init(ctx context.Context) error {
	s.mu.Lock()
	period := s.period
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.assets.Load(ctx) })
	g.Go(func() error { return s.LoadTotals(ctx, 0, false, period) })
	err := g.Wait()

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return err
}

// LoadTotals fetches one page of the series. With append the page extends
// the loaded window at the current offset; otherwise it replaces it.
func (s *PeriodStore) LoadTotals(ctx context.Context, offset int, appendPage bool, period string) error {
	s.mu.Lock()
	s.loading = true
	if !appendPage {
		s.generation++
	}
	gen := s.generation
	limit := s.pageSize
	s.mu.Unlock()

	detail, err := s.client.TotalsDetail(ctx, period, limit, offset)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		return err
	}
	if gen != s.generation {
		// A newer load superseded this page; drop it.
		return nil
	}

	s.period = period
	if appendPage {
		s.points = append(s.points, detail.Points...)
		s.columns = mergeColumns(s.columns, detail.Assets)
	} else {
		s.points = detail.Points
		s.columns = detail.Assets
	}
	s.offset = offset + len(detail.Points)
	s.hasMore = len(detail.Points) == limit
	return nil
}

// LoadMore appends the next page at the cumulative offset.
func (s *PeriodStore) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	offset := s.offset
	period := s.period
	more := s.hasMore
	s.mu.Unlock()

	if !more {
		return nil
	}
	return s.LoadTotals(ctx, offset, true, period)
}

// ChangePeriod switches granularity, resetting to the first page.
func (s *PeriodStore) ChangePeriod(ctx context.Context, period string) error {
	s.mu.Lock()
	if !s.initialized || period == s.period {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.LoadTotals(ctx, 0, false, period)
}

// Snapshot records an immutable period point. Strictly sequential: fresh
// prices first, then the persisted snapshot row, then the reloaded first
// page. Any failed step fails the whole operation.
func (s *PeriodStore) Snapshot(ctx context.Context) (string, error) {
	summary, err := s.client.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("가격 갱신 실패: %w", err)
	}
	s.assets.replaceSummary(summary)

	point, err := s.client.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("스냅샷 저장 실패: %w", err)
	}

	s.mu.Lock()
	period := s.period
	s.mu.Unlock()
	if err := s.LoadTotals(ctx, 0, false, period); err != nil {
		return "", fmt.Errorf("기록 조회 실패: %w", err)
	}

	return fmt.Sprintf("스냅샷 저장 완료 (%s)", point.PeriodStart), nil
}

// mergeColumns unions the loaded window's asset columns, preserving first
// appearance order.
func mergeColumns(existing, incoming []model.AssetColumn) []model.AssetColumn {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.ID] = true
	}
	for _, c := range incoming {
		if !seen[c.ID] {
			existing = append(existing, c)
			seen[c.ID] = true
		}
	}
	return existing
}
