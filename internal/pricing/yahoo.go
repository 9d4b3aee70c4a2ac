package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/kst"
	"github.com/mkweon/asset-tracker/internal/model"
)

// yahooChartResponse mirrors the Yahoo Finance v8 chart payload, reduced to
// the fields this package reads.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooSearchResponse mirrors the Yahoo Finance v1 search payload.
type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
	} `json:"quotes"`
}

// krSymbol normalizes a KRX symbol for Yahoo: exchange suffixes are kept,
// bare codes default to the KOSPI (.KS) suffix.
func krSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(upper, ".KS") || strings.HasSuffix(upper, ".KQ") {
		return upper
	}
	return upper + ".KS"
}

// fetchKrStockClose returns the latest available close for a Korean stock.
func (c *Client) fetchKrStockClose(ctx context.Context, symbol string) (float64, error) {
	closes, err := c.fetchKrStockCloses(ctx, symbol)
	if err != nil {
		return 0, err
	}

	price := closes[len(closes)-1].price
	log.Printf("[Yahoo] %s: %.0f KRW", symbol, price)
	return price, nil
}

// fetchKrStockPreviousClose returns the last close strictly before the
// given KST day. Used for snapshots so a mid-session quote never becomes
// the recorded daily value.
func (c *Client) fetchKrStockPreviousClose(ctx context.Context, symbol string, day time.Time) (float64, error) {
	closes, err := c.fetchKrStockCloses(ctx, symbol)
	if err != nil {
		return 0, err
	}

	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i].day.Before(kst.Midnight(day)) {
			log.Printf("[Yahoo] %s previous close on %s: %.0f KRW",
				symbol, kst.FormatDay(closes[i].day), closes[i].price)
			return closes[i].price, nil
		}
	}
	return 0, fmt.Errorf("%w: no previous close for %s", apperrors.ErrPriceFetchFailed, symbol)
}

type dailyClose struct {
	day   time.Time
	price float64
}

func (c *Client) fetchKrStockCloses(ctx context.Context, symbol string) ([]dailyClose, error) {
	reqURL := fmt.Sprintf("%s/%s?interval=1d&range=7d", c.yahooChartURL, url.PathEscape(krSymbol(symbol)))

	response, err := c.queryYahoo(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var chart yahooChartResponse
	if err := json.Unmarshal(response, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) != len(result.Timestamp) {
		return nil, fmt.Errorf("mismatched data lengths for symbol %s", symbol)
	}

	closes := []dailyClose{}
	for i, ts := range result.Timestamp {
		price := result.Indicators.Quote[0].Close[i]
		if price == nil {
			continue
		}
		closes = append(closes, dailyClose{
			day:   kst.Midnight(time.Unix(ts, 0)),
			price: *price,
		})
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("no close prices returned for symbol %s", symbol)
	}

	return closes, nil
}

// Lookup resolves a symbol to its listed name. Only US and Korean stocks
// have a name feed.
func (c *Client) Lookup(ctx context.Context, symbol, assetType string) (LookupResult, error) {
	kind := model.KindOf(assetType)
	if kind != model.KindStock && kind != model.KindKrStock {
		return LookupResult{}, apperrors.ErrInvalidLookupType
	}

	query := symbol
	if kind == model.KindKrStock {
		query = krSymbol(symbol)
	}

	reqURL := fmt.Sprintf("%s?q=%s&quotesCount=1&newsCount=0", c.yahooSearchURL, url.QueryEscape(query))

	response, err := c.queryYahoo(ctx, reqURL)
	if err != nil {
		return LookupResult{}, err
	}

	var search yahooSearchResponse
	if err := json.Unmarshal(response, &search); err != nil {
		return LookupResult{}, err
	}
	if len(search.Quotes) == 0 {
		return LookupResult{}, apperrors.ErrSymbolNotFound
	}

	name := search.Quotes[0].LongName
	if name == "" {
		name = search.Quotes[0].ShortName
	}
	if name == "" {
		return LookupResult{}, apperrors.ErrSymbolNotFound
	}

	return LookupResult{Symbol: symbol, Name: name, AssetType: assetType}, nil
}

// queryYahoo executes a request against a Yahoo Finance endpoint. Yahoo
// rejects requests without a browser-like User-Agent.
func (c *Client) queryYahoo(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo http %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
