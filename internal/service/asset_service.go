package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/kst"
	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/pricing"
	"github.com/mkweon/asset-tracker/internal/repository"
)

// RefreshInterval is the cadence of automatic price refreshes; next_refresh_at
// in the summary is derived from it.
const RefreshInterval = 30 * time.Minute

// PriceError carries the Korean user-facing detail for a failed price fetch.
type PriceError struct {
	Symbol    string
	AssetType string
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("%s 가격 조회 실패 (%s)", e.Symbol, pricing.APIDisplayName(e.AssetType))
}

// AssetService implements asset CRUD, price refreshes, and the summary view.
type AssetService struct {
	assets *repository.AssetRepository
	totals *repository.TotalsRepository
	quoter pricing.Quoter
}

// NewAssetService creates a new AssetService.
func NewAssetService(assets *repository.AssetRepository, totals *repository.TotalsRepository, quoter pricing.Quoter) *AssetService {
	return &AssetService{assets: assets, totals: totals, quoter: quoter}
}

// List returns all assets of a user with value_krw filled.
func (s *AssetService) List(userID string) ([]model.Asset, error) {
	assets, err := s.assets.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		assets[i].ComputeValue()
	}
	return assets, nil
}

// Create validates and stores a new asset. Fetchable types get an initial
// price quote; custom types take the user-supplied price, defaulting to 0
// so a later refresh never re-fetches them.
func (s *AssetService) Create(ctx context.Context, userID string, payload model.AssetCreate) (model.Asset, error) {
	assetType := strings.TrimSpace(payload.AssetType)
	if assetType == "" {
		return model.Asset{}, apperrors.ErrInvalidAssetType
	}
	if payload.Quantity <= 0 {
		return model.Asset{}, apperrors.ErrInvalidQuantity
	}

	symbol := strings.ToUpper(strings.TrimSpace(payload.Symbol))
	kind := model.KindOf(assetType)
	if kind == model.KindCrypto && symbol != "BTC" {
		return model.Asset{}, apperrors.ErrUnsupportedCrypto
	}

	asset := model.Asset{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      payload.Name,
		Symbol:    symbol,
		AssetType: assetType,
		Quantity:  payload.Quantity,
	}

	switch {
	case kind == model.KindCrypto || kind == model.KindKrStock:
		price, err := s.quoter.GetPrice(ctx, symbol, assetType)
		if err != nil {
			return model.Asset{}, &PriceError{Symbol: symbol, AssetType: assetType}
		}
		s.applyPrice(&asset, price)
	default:
		now := kst.Now()
		if payload.PriceKRW != nil {
			asset.LastPriceKRW = payload.PriceKRW
			asset.LastUpdated = &now
		}
		if payload.PriceUSD != nil {
			asset.LastPriceUSD = payload.PriceUSD
			asset.LastUpdated = &now
		}
	}

	if !kind.Fetchable() && asset.LastPriceKRW == nil {
		zero := 0.0
		asset.LastPriceKRW = &zero
	}

	if err := s.assets.Create(asset); err != nil {
		return model.Asset{}, err
	}

	asset.ComputeValue()
	return asset, nil
}

// Update applies a partial update. Price edits only make sense for custom
// assets but are accepted for any type, matching the PUT contract.
func (s *AssetService) Update(userID, assetID string, payload model.AssetUpdate) (model.Asset, error) {
	if payload.Quantity <= 0 {
		return model.Asset{}, apperrors.ErrInvalidQuantity
	}

	asset, err := s.assets.GetOnID(userID, assetID)
	if err != nil {
		return model.Asset{}, err
	}

	if payload.Name != nil {
		asset.Name = *payload.Name
	}
	if payload.Symbol != nil {
		asset.Symbol = *payload.Symbol
	}
	if payload.AssetType != nil {
		asset.AssetType = *payload.AssetType
	}
	asset.Quantity = payload.Quantity
	if payload.PriceKRW != nil {
		now := kst.Now()
		asset.LastPriceKRW = payload.PriceKRW
		asset.LastUpdated = &now
	}

	if err := s.assets.Update(asset); err != nil {
		return model.Asset{}, err
	}

	asset.ComputeValue()
	return asset, nil
}

// Delete removes an asset.
func (s *AssetService) Delete(userID, assetID string) error {
	return s.assets.Delete(userID, assetID)
}

// RefreshOne re-fetches a single asset's price in place. Custom assets are
// stamped as manually sourced instead of fetched.
func (s *AssetService) RefreshOne(ctx context.Context, userID, assetID string) (model.Asset, error) {
	asset, err := s.assets.GetOnID(userID, assetID)
	if err != nil {
		return model.Asset{}, err
	}

	if !asset.Kind().Fetchable() {
		if asset.LastPriceKRW == nil {
			zero := 0.0
			asset.LastPriceKRW = &zero
		}
		now := kst.Now()
		asset.LastUpdated = &now
		source := pricing.SourceManual
		asset.Source = &source
	} else {
		price, err := s.quoter.GetPrice(ctx, asset.Symbol, asset.AssetType)
		if err != nil {
			return model.Asset{}, &PriceError{Symbol: asset.Symbol, AssetType: asset.AssetType}
		}
		s.applyPrice(&asset, price)
	}

	if err := s.assets.Update(asset); err != nil {
		return model.Asset{}, err
	}

	asset.ComputeValue()
	return asset, nil
}

// Refresh re-fetches every asset of a user, persists today's totals, and
// returns the resulting summary. Per-symbol fetch failures keep the last
// known price and are reported in the summary's errors list; the refresh
// itself still succeeds.
func (s *AssetService) Refresh(ctx context.Context, userID string) (model.Summary, error) {
	assets, err := s.assets.GetByUserID(userID)
	if err != nil {
		return model.Summary{}, err
	}

	var targets []pricing.Target
	for i := range assets {
		a := &assets[i]
		if !a.Kind().Fetchable() {
			if a.LastPriceKRW == nil {
				zero := 0.0
				a.LastPriceKRW = &zero
			}
			source := pricing.SourceManual
			a.Source = &source
			continue
		}
		targets = append(targets, pricing.Target{Symbol: a.Symbol, AssetType: a.AssetType})
	}

	var errorsList []string
	if len(targets) > 0 {
		prices := s.quoter.GetBatch(ctx, targets)
		now := kst.Now()
		for i := range assets {
			a := &assets[i]
			if !a.Kind().Fetchable() {
				continue
			}
			price, ok := prices[a.Symbol]
			if !ok {
				errorsList = append(errorsList,
					fmt.Sprintf("%s 가격 조회 실패 (%s)", a.Symbol, pricing.APIDisplayName(a.AssetType)))
				continue
			}
			a.LastPriceKRW = &price.KRW
			a.LastPriceUSD = price.USD
			a.LastUpdated = &now
			source := price.Source
			a.Source = &source
		}
	}

	total := 0.0
	for i := range assets {
		a := &assets[i]
		if a.LastPriceKRW != nil {
			total += *a.LastPriceKRW * a.Quantity
		}
		if err := s.assets.Update(*a); err != nil {
			return model.Summary{}, err
		}
	}

	today := kst.Today()
	if err := s.totals.UpsertDailyTotal(userID, today, total, nil); err != nil {
		return model.Summary{}, err
	}
	for i := range assets {
		a := assets[i]
		value := 0.0
		if a.LastPriceKRW != nil {
			value = *a.LastPriceKRW * a.Quantity
		}
		if err := s.totals.UpsertDailyAssetTotal(userID, a.ID, today, value); err != nil {
			return model.Summary{}, err
		}
	}

	summary, err := s.buildSummary(userID, assets, total)
	if err != nil {
		return model.Summary{}, err
	}
	summary.Errors = errorsList
	return summary, nil
}

// RefreshAllUsers re-fetches prices for every asset in the system,
// deduplicating by symbol and type so shared holdings cost one quote.
// Runs from the 30-minute cron job; custom assets are skipped.
func (s *AssetService) RefreshAllUsers(ctx context.Context) error {
	assets, err := s.assets.GetAll()
	if err != nil {
		return err
	}

	holders := map[pricing.Target][]int{}
	for i, a := range assets {
		if !a.Kind().Fetchable() {
			continue
		}
		target := pricing.Target{Symbol: a.Symbol, AssetType: strings.ToLower(a.AssetType)}
		holders[target] = append(holders[target], i)
	}
	if len(holders) == 0 {
		log.Printf("No external assets to refresh")
		return nil
	}

	targets := make([]pricing.Target, 0, len(holders))
	for t := range holders {
		targets = append(targets, t)
	}

	prices := s.quoter.GetBatch(ctx, targets)

	now := kst.Now()
	for target, indexes := range holders {
		price, ok := prices[target.Symbol]
		if !ok {
			continue
		}
		for _, i := range indexes {
			a := &assets[i]
			a.LastPriceKRW = &price.KRW
			a.LastPriceUSD = price.USD
			a.LastUpdated = &now
			source := price.Source
			a.Source = &source
			if err := s.assets.Update(*a); err != nil {
				return err
			}
		}
	}

	log.Printf("Scheduled price refresh completed: %d symbols", len(prices))
	return nil
}

// Summary returns the aggregate view from stored prices, without fetching.
func (s *AssetService) Summary(userID string) (model.Summary, error) {
	assets, err := s.assets.GetByUserID(userID)
	if err != nil {
		return model.Summary{}, err
	}

	total := 0.0
	for _, a := range assets {
		if a.LastPriceKRW != nil {
			total += *a.LastPriceKRW * a.Quantity
		}
	}

	return s.buildSummary(userID, assets, total)
}

func (s *AssetService) buildSummary(userID string, assets []model.Asset, total float64) (model.Summary, error) {
	dailyChange, err := s.dailyChange(userID)
	if err != nil {
		return model.Summary{}, err
	}

	var lastRefreshed *time.Time
	for i := range assets {
		if assets[i].LastUpdated == nil {
			continue
		}
		if lastRefreshed == nil || assets[i].LastUpdated.After(*lastRefreshed) {
			lastRefreshed = assets[i].LastUpdated
		}
	}

	var nextRefreshAt *time.Time
	if lastRefreshed != nil {
		next := lastRefreshed.Add(RefreshInterval)
		nextRefreshAt = &next
	}

	for i := range assets {
		assets[i].ComputeValue()
	}

	return model.Summary{
		TotalKRW:       total,
		DailyChangeKRW: dailyChange,
		Assets:         assets,
		LastRefreshed:  lastRefreshed,
		NextRefreshAt:  nextRefreshAt,
	}, nil
}

// dailyChange is today's stored total minus yesterday's. Zero when today
// has no stored row yet; a missing yesterday counts as zero.
func (s *AssetService) dailyChange(userID string) (float64, error) {
	today := kst.Today()
	todayTotal, found, err := s.totals.GetDailyTotalOnDay(userID, today)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}

	yesterdayTotal, _, err := s.totals.GetDailyTotalOnDay(userID, today.AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	return todayTotal - yesterdayTotal, nil
}

// applyPrice copies a quote onto an asset and stamps the refresh time.
func (s *AssetService) applyPrice(asset *model.Asset, price pricing.Price) {
	now := kst.Now()
	asset.LastPriceKRW = &price.KRW
	asset.LastPriceUSD = price.USD
	asset.LastUpdated = &now
	source := price.Source
	asset.Source = &source
}
