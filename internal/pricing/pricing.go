// Package pricing fetches KRW unit prices for the supported asset classes.
//
// Provider chain per class:
//   - US stocks: Finnhub quote, Stooq CSV fallback, converted with the
//     USD/KRW rate (open.er-api.com, frankfurter.app fallback)
//   - KR stocks: Yahoo Finance v8 chart (.KS/.KQ suffix), latest close
//   - crypto: Upbit KRW-BTC ticker (BTC only)
//
// Cash and custom assets never reach this package.
package pricing

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/kst"
	"github.com/mkweon/asset-tracker/internal/model"
)

// Source names reported back to clients.
const (
	SourceFinnhub = "finnhub"
	SourceStooq   = "stooq"
	SourceUpbit   = "upbit"
	SourceYahoo   = "yahoo"
	// SourceManual marks prices entered by the user (custom assets). The
	// Korean label is part of the API contract.
	SourceManual = "직접입력"
)

// Price is one resolved quote.
type Price struct {
	KRW    float64
	USD    *float64
	Source string
	// Note describes how a snapshot price was chosen ("전일 종가",
	// "실시간", "마지막 종가"). Empty outside snapshot fetches.
	Note string
}

// Target identifies one symbol to quote.
type Target struct {
	Symbol    string
	AssetType string
}

// Quoter is the pricing surface consumed by the service layer.
type Quoter interface {
	GetPrice(ctx context.Context, symbol, assetType string) (Price, error)
	// GetBatch quotes many targets concurrently. Failed symbols are
	// absent from the result; the batch itself never fails.
	GetBatch(ctx context.Context, targets []Target) map[string]Price
	// GetSnapshotBatch is GetBatch with snapshot semantics: KR stocks
	// use the previous close relative to the KST day, US stocks use the
	// live price only while the NYSE regular session is open.
	GetSnapshotBatch(ctx context.Context, targets []Target) map[string]Price
	Lookup(ctx context.Context, symbol, assetType string) (LookupResult, error)
}

// LookupResult is a resolved symbol name.
type LookupResult struct {
	Symbol    string
	Name      string
	AssetType string
}

// Client implements Quoter against the real providers.
type Client struct {
	httpClient *http.Client

	// finnhubKey resolves the API key at call time so a key stored via
	// the settings endpoint takes effect without a restart.
	finnhubKey func() string

	// Base URLs, overridable in tests.
	fxPrimaryURL  string
	fxFallbackURL string
	finnhubURL    string
	stooqURL      string
	upbitURL      string
	yahooChartURL string
	yahooSearchURL string

	// now is the clock used for market-hours decisions.
	now func() time.Time
}

// NewClient creates a pricing client. keyFn may be nil when no Finnhub key
// is configured; the Stooq fallback still serves US stocks.
func NewClient(keyFn func() string) *Client {
	if keyFn == nil {
		keyFn = func() string { return "" }
	}
	return &Client{
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		finnhubKey:     keyFn,
		fxPrimaryURL:   "https://open.er-api.com/v6/latest/USD",
		fxFallbackURL:  "https://api.frankfurter.app/latest",
		finnhubURL:     "https://finnhub.io/api/v1",
		stooqURL:       "https://stooq.com/q/l/",
		upbitURL:       "https://api.upbit.com/v1/ticker",
		yahooChartURL:  "https://query1.finance.yahoo.com/v8/finance/chart",
		yahooSearchURL: "https://query1.finance.yahoo.com/v1/finance/search",
		now:            time.Now,
	}
}

// GetPrice quotes a single symbol.
func (c *Client) GetPrice(ctx context.Context, symbol, assetType string) (Price, error) {
	switch model.KindOf(assetType) {
	case model.KindStock:
		usd, source, err := c.fetchStockUSD(ctx, symbol)
		if err != nil {
			return Price{}, err
		}
		rate, err := c.fetchUSDKRWRate(ctx)
		if err != nil {
			return Price{}, err
		}
		return Price{KRW: usd * rate, USD: &usd, Source: source}, nil

	case model.KindKrStock:
		krw, err := c.fetchKrStockClose(ctx, symbol)
		if err != nil {
			return Price{}, err
		}
		return Price{KRW: krw, Source: SourceYahoo}, nil

	case model.KindCrypto:
		if !strings.EqualFold(symbol, "BTC") {
			return Price{}, fmt.Errorf("%w: %s", apperrors.ErrPriceFetchFailed, symbol)
		}
		krw, err := c.fetchBTCKRW(ctx)
		if err != nil {
			return Price{}, err
		}
		return Price{KRW: krw, Source: SourceUpbit}, nil
	}

	return Price{}, fmt.Errorf("%w: unsupported type %s/%s", apperrors.ErrPriceFetchFailed, assetType, symbol)
}

// GetBatch quotes many targets concurrently. The USD/KRW rate is fetched
// once and shared by every US stock.
func (c *Client) GetBatch(ctx context.Context, targets []Target) map[string]Price {
	results := c.batch(ctx, targets, false)

	counts := map[string]int{}
	for _, p := range results {
		counts[p.Source]++
	}
	log.Printf("Batch price fetch completed: %v", counts)

	return results
}

// GetSnapshotBatch quotes many targets with snapshot-time semantics.
func (c *Client) GetSnapshotBatch(ctx context.Context, targets []Target) map[string]Price {
	results := c.batch(ctx, targets, true)

	counts := map[string]int{}
	for _, p := range results {
		counts[p.Source]++
	}
	log.Printf("Snapshot price fetch completed: %v (US market open: %v)", counts, c.isUSMarketOpen())

	return results
}

//nolint:gocyclo // Per-class dispatch over a shared FX rate
func (c *Client) batch(ctx context.Context, targets []Target, snapshot bool) map[string]Price {
	var usStocks, others []Target
	for _, t := range targets {
		if model.KindOf(t.AssetType) == model.KindStock {
			usStocks = append(usStocks, t)
		} else {
			others = append(others, t)
		}
	}

	var mu sync.Mutex
	results := map[string]Price{}
	store := func(symbol string, p Price) {
		mu.Lock()
		results[symbol] = p
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if len(usStocks) > 0 {
		rate, err := c.fetchUSDKRWRate(ctx)
		if err != nil {
			log.Printf("Failed to fetch USD/KRW rate: %v", err)
		} else {
			usNote := ""
			if snapshot {
				if c.isUSMarketOpen() {
					usNote = "실시간"
				} else {
					usNote = "마지막 종가"
				}
			}
			for _, t := range usStocks {
				g.Go(func() error {
					usd, source, err := c.fetchStockUSD(gctx, t.Symbol)
					if err != nil {
						log.Printf("All sources failed for %s: %v", t.Symbol, err)
						return nil
					}
					store(t.Symbol, Price{KRW: usd * rate, USD: &usd, Source: source, Note: usNote})
					return nil
				})
			}
		}
	}

	today := kst.Today()
	for _, t := range others {
		g.Go(func() error {
			var p Price
			var err error
			switch model.KindOf(t.AssetType) {
			case model.KindKrStock:
				if snapshot {
					var krw float64
					krw, err = c.fetchKrStockPreviousClose(gctx, t.Symbol, today)
					p = Price{KRW: krw, Source: SourceYahoo, Note: "전일 종가"}
				} else {
					var krw float64
					krw, err = c.fetchKrStockClose(gctx, t.Symbol)
					p = Price{KRW: krw, Source: SourceYahoo}
				}
			case model.KindCrypto:
				if !strings.EqualFold(t.Symbol, "BTC") {
					return nil
				}
				var krw float64
				krw, err = c.fetchBTCKRW(gctx)
				p = Price{KRW: krw, Source: SourceUpbit}
				if snapshot {
					p.Note = "실시간"
				}
			default:
				return nil
			}
			if err != nil {
				log.Printf("Price fetch failed for %s: %v", t.Symbol, err)
				return nil
			}
			store(t.Symbol, p)
			return nil
		})
	}

	// Workers swallow their own failures; Wait only propagates context errors.
	_ = g.Wait()

	return results
}

// isUSMarketOpen reports whether the NYSE regular session is open:
// Mon-Fri 09:30-16:00 America/New_York.
func (c *Client) isUSMarketOpen() bool {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		return false
	}
	now := c.now().In(ny)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	open := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, ny)
	close := time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, ny)
	return !now.Before(open) && now.Before(close)
}

// APIDisplayName returns the Korean-facing provider name for error
// messages, keyed by asset type.
func APIDisplayName(assetType string) string {
	switch model.KindOf(assetType) {
	case model.KindStock:
		return "미국주식 API"
	case model.KindKrStock:
		return "국내주식 API"
	case model.KindCrypto:
		return "비트코인 API"
	default:
		return assetType
	}
}
