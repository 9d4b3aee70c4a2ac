package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mkweon/asset-tracker/internal/apperrors"
)

// fetchStockUSD returns the USD price of a US stock, trying Finnhub first
// and Stooq second. The returned source names which provider answered.
func (c *Client) fetchStockUSD(ctx context.Context, symbol string) (float64, string, error) {
	price, err := c.fetchFromFinnhub(ctx, symbol)
	if err == nil {
		return price, SourceFinnhub, nil
	}
	log.Printf("[Finnhub] Failed for %s: %v", symbol, err)

	price, err = c.fetchFromStooq(ctx, symbol)
	if err == nil {
		return price, SourceStooq, nil
	}
	log.Printf("[Stooq] Failed for %s: %v", symbol, err)

	return 0, "", fmt.Errorf("%w: all sources failed for %s", apperrors.ErrPriceFetchFailed, symbol)
}

func (c *Client) fetchFromFinnhub(ctx context.Context, symbol string) (float64, error) {
	key := c.finnhubKey()
	if key == "" {
		return 0, fmt.Errorf("api key not configured")
	}

	reqURL := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		c.finnhubURL, url.QueryEscape(symbol), url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("finnhub http %d", resp.StatusCode)
	}

	var quote struct {
		Current float64 `json:"c"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, err
	}

	// Finnhub reports unknown symbols as c=0 with HTTP 200.
	if quote.Current == 0 {
		return 0, fmt.Errorf("no data for %s (c=0)", symbol)
	}

	log.Printf("[Finnhub] %s: %.2f USD", symbol, quote.Current)
	return quote.Current, nil
}

func (c *Client) fetchFromStooq(ctx context.Context, symbol string) (float64, error) {
	stooqSymbol := strings.ToLower(symbol) + ".us"
	reqURL := fmt.Sprintf("%s?s=%s&f=sd2t2ohlcv&h=&e=csv", c.stooqURL, url.QueryEscape(stooqSymbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("stooq http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	price, err := parseStooqCSV(string(data))
	if err != nil {
		return 0, err
	}

	log.Printf("[Stooq] %s: %.2f USD", symbol, price)
	return price, nil
}

// parseStooqCSV extracts the close price from Stooq's one-row CSV quote.
func parseStooqCSV(body string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("insufficient data: %.80s", body)
	}

	headers := strings.Split(strings.TrimSpace(lines[0]), ",")
	values := strings.Split(strings.TrimSpace(lines[1]), ",")
	if len(headers) != len(values) {
		return 0, fmt.Errorf("header/value mismatch")
	}

	closeValue := ""
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), "close") {
			closeValue = strings.TrimSpace(values[i])
			break
		}
	}

	// Stooq reports unknown symbols as N/D.
	if closeValue == "" || closeValue == "N/D" {
		return 0, fmt.Errorf("no close price (N/D)")
	}

	price, err := strconv.ParseFloat(closeValue, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid close price %q: %w", closeValue, err)
	}
	return price, nil
}
