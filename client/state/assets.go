// Package state holds the client-side stores: the asset collection with
// optimistic editing and the paginated period series. Stores own their data;
// views read through accessor copies and never share mutable state.
package state

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mkweon/asset-tracker/client"
	"github.com/mkweon/asset-tracker/internal/model"
)

// LookupDelay is how long symbol input must rest before a name lookup fires.
const LookupDelay = 500 * time.Millisecond

// AddForm is the input for creating an asset. Type selects the canonical
// asset class or "custom"; CustomLabel is the free-text sub-type that
// becomes the stored asset_type for custom assets.
type AddForm struct {
	Name        string
	Type        string
	CustomLabel string
	Symbol      string
	Quantity    float64
	PriceKRW    *float64
}

// EditForm is the input for editing an asset in place.
type EditForm struct {
	Name      string
	Symbol    string
	AssetType string
	Quantity  float64
	PriceKRW  *float64
}

// AssetStore caches the portfolio summary and runs all asset mutations.
type AssetStore struct {
	mu      sync.Mutex
	client  *client.Client
	summary model.Summary

	// Busy flags disable the triggering control against double submission.
	loading    bool
	saving     bool
	refreshing bool

	// Debounced symbol lookup. One owned timer; every keystroke cancels and
	// restarts it, Close cancels it for good. lookupSeq discards results of
	// superseded lookups.
	lookupTimer *time.Timer
	lookupSeq   int

	// editName is where a resolved lookup name lands, only while the user
	// has not typed one.
	editName *string
}

// NewAssetStore creates a store over the given API client.
func NewAssetStore(c *client.Client) *AssetStore {
	return &AssetStore{client: c}
}

// Summary returns the cached summary.
func (s *AssetStore) Summary() model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Loading reports whether the initial summary load is in flight.
func (s *AssetStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Saving reports whether an add or edit is in flight.
func (s *AssetStore) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Refreshing reports whether a bulk refresh is in flight.
func (s *AssetStore) Refreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshing
}

// Load fetches the summary from stored prices.
func (s *AssetStore) Load(ctx context.Context) error {
	s.setFlag(&s.loading, true)
	defer s.setFlag(&s.loading, false)

	summary, err := s.client.Summary(ctx)
	if err != nil {
		return err
	}
	s.replaceSummary(summary)
	return nil
}

// Add validates the form locally and creates the asset. Validation errors
// never reach the network.
func (s *AssetStore) Add(ctx context.Context, form AddForm) error {
	payload, err := buildCreate(form)
	if err != nil {
		return err
	}

	s.setFlag(&s.saving, true)
	defer s.setFlag(&s.saving, false)

	asset, err := s.client.CreateAsset(ctx, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Assets = append(s.summary.Assets, asset)
	s.recomputeTotal()
	return nil
}

// buildCreate turns a form into the create payload, enforcing the
// client-side rules: name required, quantity a positive integer, custom
// types need a label and an explicit positive price, implied symbols are
// filled in.
func buildCreate(form AddForm) (model.AssetCreate, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return model.AssetCreate{}, errors.New("이름을 입력해주세요.")
	}
	if form.Quantity <= 0 || form.Quantity != math.Trunc(form.Quantity) {
		return model.AssetCreate{}, errors.New("수량은 양의 정수여야 합니다.")
	}

	assetType := form.Type
	symbol := strings.TrimSpace(form.Symbol)

	switch form.Type {
	case model.TypeCrypto:
		if symbol == "" {
			symbol = "BTC"
		}
	case model.TypeCash:
		symbol = "CASH"
	case model.TypeStock, model.TypeKrStock:
		if symbol == "" {
			return model.AssetCreate{}, errors.New("종목 코드를 입력해주세요.")
		}
	default:
		// Custom: the free-text label is the stored type and, absent an
		// explicit symbol, the symbol too.
		label := strings.TrimSpace(form.CustomLabel)
		if label == "" {
			return model.AssetCreate{}, errors.New("자산 종류를 입력해주세요.")
		}
		if form.PriceKRW == nil || *form.PriceKRW <= 0 {
			return model.AssetCreate{}, errors.New("직접입력 자산은 가격을 입력해야 합니다.")
		}
		assetType = label
		if symbol == "" {
			symbol = label
		}
	}

	return model.AssetCreate{
		Name:      name,
		Symbol:    symbol,
		AssetType: assetType,
		Quantity:  form.Quantity,
		PriceKRW:  form.PriceKRW,
	}, nil
}

// SaveEdit applies the edit optimistically, then persists it. On failure
// the pre-edit asset list is restored verbatim and the error surfaced.
func (s *AssetStore) SaveEdit(ctx context.Context, id string, form EditForm) error {
	s.setFlag(&s.saving, true)
	defer s.setFlag(&s.saving, false)

	s.mu.Lock()
	snapshot := make([]model.Asset, len(s.summary.Assets))
	copy(snapshot, s.summary.Assets)

	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("asset %s not found", id)
	}

	edited := s.summary.Assets[idx]
	edited.Name = form.Name
	edited.Symbol = form.Symbol
	edited.AssetType = form.AssetType
	edited.Quantity = form.Quantity
	if form.PriceKRW != nil {
		edited.LastPriceKRW = form.PriceKRW
	}
	edited.ComputeValue()
	s.summary.Assets[idx] = edited
	s.recomputeTotal()
	s.mu.Unlock()

	update := model.AssetUpdate{
		Name:      &form.Name,
		Symbol:    &form.Symbol,
		AssetType: &form.AssetType,
		Quantity:  form.Quantity,
		PriceKRW:  form.PriceKRW,
	}

	saved, err := s.client.UpdateAsset(ctx, id, update)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.summary.Assets = snapshot
		s.recomputeTotal()
		return err
	}

	// Reconcile with the server's version; identity and order unchanged.
	if idx := s.indexOf(id); idx >= 0 {
		s.summary.Assets[idx] = saved
		s.recomputeTotal()
	}
	return nil
}

// Delete removes an asset after the confirm callback approves. A declined
// confirm is not an error.
func (s *AssetStore) Delete(ctx context.Context, id string, confirm func() bool) error {
	if confirm != nil && !confirm() {
		return nil
	}

	if err := s.client.DeleteAsset(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		s.summary.Assets = append(s.summary.Assets[:idx], s.summary.Assets[idx+1:]...)
		s.recomputeTotal()
	}
	return nil
}

// Refresh forces a server-side re-fetch of every price and replaces the
// summary. Returns a per-source count message; partial provider failures
// ride along in the summary's Errors list.
func (s *AssetStore) Refresh(ctx context.Context) (string, error) {
	s.setFlag(&s.refreshing, true)
	defer s.setFlag(&s.refreshing, false)

	summary, err := s.client.Refresh(ctx)
	if err != nil {
		return "", err
	}
	s.replaceSummary(summary)
	return refreshMessage(summary.Assets), nil
}

// RefreshAsset re-fetches one asset and patches it in place, preserving
// the rest of the collection untouched.
func (s *AssetStore) RefreshAsset(ctx context.Context, id string) error {
	asset, err := s.client.RefreshAsset(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		s.summary.Assets[idx] = asset
		s.recomputeTotal()
	}
	return nil
}

// ScheduleLookup debounces a symbol-to-name lookup while the user types.
// Every call cancels the pending timer and starts a new one; the resolved
// name fills nameField only if it is still empty when the result arrives.
// Failures are silent; lookup is autofill, not validation.
func (s *AssetStore) ScheduleLookup(symbol, assetType string, nameField *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookupSeq++
	seq := s.lookupSeq
	s.editName = nameField

	if s.lookupTimer != nil {
		s.lookupTimer.Stop()
	}

	symbol = strings.TrimSpace(symbol)
	if symbol == "" || !model.KindOf(assetType).Fetchable() {
		return
	}

	s.lookupTimer = time.AfterFunc(LookupDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := s.client.Lookup(ctx, symbol, assetType)
		if err != nil {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.lookupSeq || s.editName == nil {
			return
		}
		if strings.TrimSpace(*s.editName) == "" {
			*s.editName = result.Name
		}
	})
}

// Close cancels any pending lookup timer.
func (s *AssetStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupSeq++
	if s.lookupTimer != nil {
		s.lookupTimer.Stop()
		s.lookupTimer = nil
	}
}

func (s *AssetStore) replaceSummary(summary model.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}

// indexOf finds an asset position; callers hold the mutex.
func (s *AssetStore) indexOf(id string) int {
	for i, a := range s.summary.Assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// recomputeTotal keeps TotalKRW consistent after local mutations; callers
// hold the mutex.
func (s *AssetStore) recomputeTotal() {
	total := 0.0
	for _, a := range s.summary.Assets {
		if a.ValueKRW != nil {
			total += *a.ValueKRW
		}
	}
	s.summary.TotalKRW = total
}

func (s *AssetStore) setFlag(flag *bool, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*flag = v
}

// refreshMessage builds the per-source count line shown after a bulk
// refresh, e.g. "가격 갱신 완료: finnhub 2개, upbit 1개".
func refreshMessage(assets []model.Asset) string {
	counts := map[string]int{}
	for _, a := range assets {
		if a.Source == nil || *a.Source == "" {
			continue
		}
		counts[*a.Source]++
	}
	if len(counts) == 0 {
		return "가격 갱신 완료"
	}

	sources := make([]string, 0, len(counts))
	for source := range counts {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s %d개", source, counts[source]))
	}
	return "가격 갱신 완료: " + strings.Join(parts, ", ")
}
