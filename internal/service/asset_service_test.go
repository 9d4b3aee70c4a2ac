package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/pricing"
	"github.com/mkweon/asset-tracker/internal/service"
	"github.com/mkweon/asset-tracker/internal/testutil"
)

// TestAssetService_Create tests asset creation across the type matrix.
//
// WHY: Creation mixes validation, initial price fetches and the custom-type
// zero-fill rule; each branch has a distinct externally observable result.
func TestAssetService_Create(t *testing.T) {
	t.Run("rejects non-positive quantity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAssetService(t, db, testutil.NewMockQuoter())
		user := testutil.NewUser().Build(t, db)

		_, err := svc.Create(context.Background(), user.ID, model.AssetCreate{
			Name: "Apple", Symbol: "AAPL", AssetType: model.TypeStock, Quantity: 0,
		})

		if !errors.Is(err, apperrors.ErrInvalidQuantity) {
			t.Fatalf("Expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("rejects crypto other than BTC", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAssetService(t, db, testutil.NewMockQuoter())
		user := testutil.NewUser().Build(t, db)

		_, err := svc.Create(context.Background(), user.ID, model.AssetCreate{
			Name: "Ethereum", Symbol: "ETH", AssetType: model.TypeCrypto, Quantity: 1,
		})

		if !errors.Is(err, apperrors.ErrUnsupportedCrypto) {
			t.Fatalf("Expected ErrUnsupportedCrypto, got %v", err)
		}
	})

	t.Run("fetches an initial price for crypto", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quoter := testutil.NewMockQuoter().SetPrice("BTC", 90000000, pricing.SourceUpbit)
		svc := testutil.NewTestAssetService(t, db, quoter)
		user := testutil.NewUser().Build(t, db)

		asset, err := svc.Create(context.Background(), user.ID, model.AssetCreate{
			Name: "비트코인", Symbol: "btc", AssetType: model.TypeCrypto, Quantity: 1,
		})
		if err != nil {
			t.Fatalf("Create() returned unexpected error: %v", err)
		}

		if asset.Symbol != "BTC" {
			t.Errorf("Expected symbol upper-cased to BTC, got %s", asset.Symbol)
		}
		if asset.LastPriceKRW == nil || *asset.LastPriceKRW != 90000000 {
			t.Errorf("Expected fetched price 90000000, got %v", asset.LastPriceKRW)
		}
		if asset.ValueKRW == nil || *asset.ValueKRW != 90000000 {
			t.Errorf("Expected value filled from price, got %v", asset.ValueKRW)
		}
	})

	t.Run("surfaces the Korean price error when the initial fetch fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quoter := testutil.NewMockQuoter().SetError("005930", apperrors.ErrPriceFetchFailed)
		svc := testutil.NewTestAssetService(t, db, quoter)
		user := testutil.NewUser().Build(t, db)

		_, err := svc.Create(context.Background(), user.ID, model.AssetCreate{
			Name: "삼성전자", Symbol: "005930", AssetType: model.TypeKrStock, Quantity: 10,
		})

		var priceErr *service.PriceError
		if !errors.As(err, &priceErr) {
			t.Fatalf("Expected PriceError, got %v", err)
		}
		want := "005930 가격 조회 실패 (국내주식 API)"
		if priceErr.Error() != want {
			t.Errorf("Expected %q, got %q", want, priceErr.Error())
		}
	})

	t.Run("custom type without price is zero-filled", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAssetService(t, db, testutil.NewMockQuoter())
		user := testutil.NewUser().Build(t, db)

		asset, err := svc.Create(context.Background(), user.ID, model.AssetCreate{
			Name: "예금", Symbol: "예금", AssetType: "예금", Quantity: 1,
		})
		if err != nil {
			t.Fatalf("Create() returned unexpected error: %v", err)
		}

		if asset.LastPriceKRW == nil || *asset.LastPriceKRW != 0 {
			t.Errorf("Expected zero-filled price, got %v", asset.LastPriceKRW)
		}
	})

	t.Run("custom type takes the supplied price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAssetService(t, db, testutil.NewMockQuoter())
		user := testutil.NewUser().Build(t, db)

		price := 10000.0
		asset, err := svc.Create(context.Background(), user.ID, model.AssetCreate{
			Name: "예금", Symbol: "예금", AssetType: "예금", Quantity: 3, PriceKRW: &price,
		})
		if err != nil {
			t.Fatalf("Create() returned unexpected error: %v", err)
		}

		if asset.ValueKRW == nil || *asset.ValueKRW != 30000 {
			t.Errorf("Expected value 30000, got %v", asset.ValueKRW)
		}
		if asset.LastUpdated == nil {
			t.Error("Expected LastUpdated stamped for a priced custom asset")
		}
	})
}

// TestAssetService_RefreshOne tests the single-asset re-fetch.
func TestAssetService_RefreshOne(t *testing.T) {
	t.Run("custom assets are stamped as manual", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAssetService(t, db, testutil.NewMockQuoter())
		user := testutil.NewUser().Build(t, db)
		asset := testutil.NewAsset(user.ID).WithType("부동산").WithPriceKRW(500000000).Build(t, db)

		refreshed, err := svc.RefreshOne(context.Background(), user.ID, asset.ID)
		if err != nil {
			t.Fatalf("RefreshOne() returned unexpected error: %v", err)
		}

		if refreshed.Source == nil || *refreshed.Source != pricing.SourceManual {
			t.Errorf("Expected source %q, got %v", pricing.SourceManual, refreshed.Source)
		}
		if refreshed.LastPriceKRW == nil || *refreshed.LastPriceKRW != 500000000 {
			t.Errorf("Expected stored price kept, got %v", refreshed.LastPriceKRW)
		}
	})

	t.Run("fetch failure returns a PriceError", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quoter := testutil.NewMockQuoter().SetError("AAPL", apperrors.ErrPriceFetchFailed)
		svc := testutil.NewTestAssetService(t, db, quoter)
		user := testutil.NewUser().Build(t, db)
		asset := testutil.NewAsset(user.ID).WithSymbol("AAPL").Build(t, db)

		_, err := svc.RefreshOne(context.Background(), user.ID, asset.ID)

		var priceErr *service.PriceError
		if !errors.As(err, &priceErr) {
			t.Fatalf("Expected PriceError, got %v", err)
		}
	})
}

// TestAssetService_Refresh tests the bulk refresh.
//
// WHY: The bulk path must degrade per symbol: failed fetches keep the last
// known price and land in the errors list while the refresh still succeeds
// and persists today's totals.
func TestAssetService_Refresh(t *testing.T) {
	t.Run("partial failure keeps last known price and reports it", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quoter := testutil.NewMockQuoter().
			SetPrice("AAPL", 250000, pricing.SourceFinnhub).
			SetError("FAIL", apperrors.ErrPriceFetchFailed)
		svc := testutil.NewTestAssetService(t, db, quoter)
		user := testutil.NewUser().Build(t, db)

		testutil.NewAsset(user.ID).WithSymbol("AAPL").WithQuantity(1).Build(t, db)
		testutil.NewAsset(user.ID).WithSymbol("FAIL").WithQuantity(2).
			WithPriceKRW(1000).Build(t, db)

		summary, err := svc.Refresh(context.Background(), user.ID)
		if err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}

		if len(summary.Errors) != 1 {
			t.Fatalf("Expected 1 error, got %d: %v", len(summary.Errors), summary.Errors)
		}
		want := "FAIL 가격 조회 실패 (미국주식 API)"
		if summary.Errors[0] != want {
			t.Errorf("Expected %q, got %q", want, summary.Errors[0])
		}

		// 250000 from the fetch plus 2 * 1000 last known.
		if summary.TotalKRW != 252000 {
			t.Errorf("Expected total 252000, got %.0f", summary.TotalKRW)
		}

		testutil.AssertRowCount(t, db, "daily_totals", 1)
		testutil.AssertRowCount(t, db, "daily_asset_totals", 2)
	})

	t.Run("custom assets are marked manual and never fetched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quoter := testutil.NewMockQuoter()
		svc := testutil.NewTestAssetService(t, db, quoter)
		user := testutil.NewUser().Build(t, db)

		testutil.NewAsset(user.ID).WithType("예금").WithPriceKRW(10000).Build(t, db)

		summary, err := svc.Refresh(context.Background(), user.ID)
		if err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}

		if len(summary.Errors) != 0 {
			t.Errorf("Expected no errors for custom-only portfolio, got %v", summary.Errors)
		}
		if summary.Assets[0].Source == nil || *summary.Assets[0].Source != pricing.SourceManual {
			t.Errorf("Expected manual source, got %v", summary.Assets[0].Source)
		}
	})
}

// TestAssetService_Summary tests the stored-price summary and daily change.
func TestAssetService_Summary(t *testing.T) {
	t.Run("daily change is zero without today's row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAssetService(t, db, testutil.NewMockQuoter())
		user := testutil.NewUser().Build(t, db)
		testutil.NewAsset(user.ID).WithPriceKRW(1000).Build(t, db)

		summary, err := svc.Summary(user.ID)
		if err != nil {
			t.Fatalf("Summary() returned unexpected error: %v", err)
		}

		if summary.DailyChangeKRW != 0 {
			t.Errorf("Expected zero daily change, got %.0f", summary.DailyChangeKRW)
		}
		if summary.TotalKRW != 1000 {
			t.Errorf("Expected total 1000, got %.0f", summary.TotalKRW)
		}
	})

	t.Run("update moves ownership-scoped assets only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAssetService(t, db, testutil.NewMockQuoter())
		owner := testutil.NewUser().Build(t, db)
		stranger := testutil.NewUser().Build(t, db)
		asset := testutil.NewAsset(owner.ID).Build(t, db)

		_, err := svc.Update(stranger.ID, asset.ID, model.AssetUpdate{Quantity: 5})

		if !errors.Is(err, apperrors.ErrAssetNotFound) {
			t.Fatalf("Expected ErrAssetNotFound for foreign asset, got %v", err)
		}
	})
}
