package service

import (
	"context"
	"log"
	"time"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/kst"
	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/pricing"
	"github.com/mkweon/asset-tracker/internal/repository"
)

// Totals pagination bounds.
const (
	MinTotalsLimit = 1
	MaxTotalsLimit = 120
)

// TotalsService builds the period series from stored daily totals and
// records snapshots.
type TotalsService struct {
	assets *repository.AssetRepository
	totals *repository.TotalsRepository
	users  *repository.UserRepository
	quoter pricing.Quoter
}

// NewTotalsService creates a new TotalsService.
func NewTotalsService(assets *repository.AssetRepository, totals *repository.TotalsRepository, users *repository.UserRepository, quoter pricing.Quoter) *TotalsService {
	return &TotalsService{assets: assets, totals: totals, users: users, quoter: quoter}
}

// ClampPage normalizes limit and offset to their allowed ranges.
func ClampPage(limit, offset int) (int, int) {
	if limit < MinTotalsLimit {
		limit = MinTotalsLimit
	}
	if limit > MaxTotalsLimit {
		limit = MaxTotalsLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Points returns one page of the aggregated totals series, newest first.
func (s *TotalsService) Points(userID, period string, limit, offset int) ([]model.PeriodPoint, error) {
	if !model.ValidPeriod(period) {
		return nil, apperrors.ErrInvalidPeriod
	}
	limit, offset = ClampPage(limit, offset)

	rows, err := s.totals.GetDailyTotals(userID)
	if err != nil {
		return nil, err
	}

	buckets := buildPeriodBuckets(rows, period)
	points := make([]model.PeriodPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, model.PeriodPoint{
			PeriodStart: kst.FormatDay(b.start),
			PeriodEnd:   kst.FormatDay(b.end),
			TotalKRW:    b.total,
		})
	}

	return pageOf(points, limit, offset), nil
}

// Detail returns one page of the series including per-asset values. The
// asset columns cover every asset the user currently holds; assets without
// a stored value for a day report zero.
func (s *TotalsService) Detail(userID, period string, limit, offset int) (model.TotalsDetail, error) {
	if !model.ValidPeriod(period) {
		return model.TotalsDetail{}, apperrors.ErrInvalidPeriod
	}
	limit, offset = ClampPage(limit, offset)

	assets, err := s.assets.GetByUserID(userID)
	if err != nil {
		return model.TotalsDetail{}, err
	}

	columns := make([]model.AssetColumn, len(assets))
	assetIDs := make([]string, len(assets))
	for i, a := range assets {
		columns[i] = model.AssetColumn{ID: a.ID, Name: a.Name, Symbol: a.Symbol}
		assetIDs[i] = a.ID
	}

	rows, err := s.totals.GetDailyTotals(userID)
	if err != nil {
		return model.TotalsDetail{}, err
	}

	buckets := pageOf(buildPeriodBuckets(rows, period), limit, offset)

	points := make([]model.PeriodPointDetail, 0, len(buckets))
	for _, b := range buckets {
		values, err := s.totals.GetAssetTotalsOnDay(userID, b.day, assetIDs)
		if err != nil {
			return model.TotalsDetail{}, err
		}

		assetValues := make([]model.AssetValue, len(assets))
		for i, a := range assets {
			assetValues[i] = model.AssetValue{
				ID:       a.ID,
				Name:     a.Name,
				Symbol:   a.Symbol,
				TotalKRW: values[a.ID],
			}
		}

		points = append(points, model.PeriodPointDetail{
			PeriodStart: kst.FormatDay(b.start),
			PeriodEnd:   kst.FormatDay(b.end),
			TotalKRW:    b.total,
			Assets:      assetValues,
			SnapshotAt:  b.snapshotAt,
		})
	}

	return model.TotalsDetail{Assets: columns, Points: points}, nil
}

// Snapshot fetches snapshot-time prices for every asset, persists today's
// totals with a snapshot timestamp, and returns the recorded point. Assets
// whose fetch failed keep their last known price.
func (s *TotalsService) Snapshot(ctx context.Context, userID string) (model.PeriodPoint, error) {
	assets, err := s.assets.GetByUserID(userID)
	if err != nil {
		return model.PeriodPoint{}, err
	}

	var targets []pricing.Target
	for _, a := range assets {
		if a.Kind().Fetchable() {
			targets = append(targets, pricing.Target{Symbol: a.Symbol, AssetType: a.AssetType})
		}
	}

	var prices map[string]pricing.Price
	if len(targets) > 0 {
		prices = s.quoter.GetSnapshotBatch(ctx, targets)
	}

	now := kst.Now()
	total := 0.0
	values := make(map[string]float64, len(assets))

	for i := range assets {
		a := &assets[i]
		if a.Kind().Fetchable() {
			if price, ok := prices[a.Symbol]; ok {
				a.LastPriceKRW = &price.KRW
				a.LastPriceUSD = price.USD
				a.LastUpdated = &now
				source := price.Source
				a.Source = &source
				log.Printf("[Snapshot] %s: %.0f KRW (%s)", a.Symbol, price.KRW, price.Note)
				if err := s.assets.Update(*a); err != nil {
					return model.PeriodPoint{}, err
				}
			} else {
				log.Printf("[Snapshot] Price fetch failed for %s, using existing price", a.Symbol)
			}
		} else if a.LastPriceKRW == nil {
			zero := 0.0
			a.LastPriceKRW = &zero
		}

		value := 0.0
		if a.LastPriceKRW != nil {
			value = *a.LastPriceKRW * a.Quantity
		}
		values[a.ID] = value
		total += value
	}

	today := kst.Today()
	if err := s.totals.UpsertDailyTotal(userID, today, total, &now); err != nil {
		return model.PeriodPoint{}, err
	}
	for _, a := range assets {
		if err := s.totals.UpsertDailyAssetTotal(userID, a.ID, today, values[a.ID]); err != nil {
			return model.PeriodPoint{}, err
		}
	}

	log.Printf("[Snapshot] Saved for user %s: %.0f KRW on %s", userID, total, kst.FormatDay(today))

	return model.PeriodPoint{
		PeriodStart: kst.FormatDay(today),
		PeriodEnd:   kst.FormatDay(today),
		TotalKRW:    total,
	}, nil
}

// RunDailySnapshot records today's totals for every user from stored
// prices. Runs from the midnight cron job; no prices are fetched.
func (s *TotalsService) RunDailySnapshot() error {
	users, err := s.users.GetAll()
	if err != nil {
		return err
	}

	today := kst.Today()
	for _, user := range users {
		assets, err := s.assets.GetByUserID(user.ID)
		if err != nil {
			return err
		}

		total := 0.0
		for _, a := range assets {
			value := 0.0
			if a.LastPriceKRW != nil {
				value = *a.LastPriceKRW * a.Quantity
			}
			total += value
			if err := s.totals.UpsertDailyAssetTotal(user.ID, a.ID, today, value); err != nil {
				return err
			}
		}

		if err := s.totals.UpsertDailyTotal(user.ID, today, total, nil); err != nil {
			return err
		}
	}

	return nil
}

// periodBucket is one aggregated row before formatting. day is the newest
// underlying daily row, used to join per-asset values.
type periodBucket struct {
	day        time.Time
	start      time.Time
	end        time.Time
	total      float64
	snapshotAt *time.Time
}

// buildPeriodBuckets folds newest-first daily rows into period rows. For
// weekly and monthly the newest row of each ISO week / calendar month wins,
// matching the newest-first convention of the series.
func buildPeriodBuckets(rows []model.DailyTotal, period string) []periodBucket {
	buckets := []periodBucket{}
	seen := map[[2]int]bool{}

	for _, row := range rows {
		var key [2]int
		var start, end time.Time

		switch period {
		case model.PeriodDaily:
			buckets = append(buckets, periodBucket{
				day:        row.Day,
				start:      row.Day,
				end:        row.Day,
				total:      row.TotalKRW,
				snapshotAt: row.SnapshotAt,
			})
			continue

		case model.PeriodWeekly:
			year, week := row.Day.ISOWeek()
			key = [2]int{year, week}
			// Monday of the row's ISO week.
			weekday := int(row.Day.Weekday())
			if weekday == 0 {
				weekday = 7
			}
			start = row.Day.AddDate(0, 0, -(weekday - 1))
			end = start.AddDate(0, 0, 6)

		default: // monthly
			key = [2]int{row.Day.Year(), int(row.Day.Month())}
			start = time.Date(row.Day.Year(), row.Day.Month(), 1, 0, 0, 0, 0, kst.Location)
			end = start.AddDate(0, 1, -1)
		}

		if seen[key] {
			continue
		}
		seen[key] = true
		buckets = append(buckets, periodBucket{
			day:        row.Day,
			start:      start,
			end:        end,
			total:      row.TotalKRW,
			snapshotAt: row.SnapshotAt,
		})
	}

	return buckets
}

// pageOf slices one page out of a series; out-of-range offsets yield an
// empty page rather than an error.
func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
