package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// fetchBTCKRW returns the current BTC price in KRW from the Upbit ticker.
func (c *Client) fetchBTCKRW(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.upbitURL+"?markets=KRW-BTC", nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("upbit http %d", resp.StatusCode)
	}

	var tickers []struct {
		TradePrice float64 `json:"trade_price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return 0, err
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("empty ticker response")
	}

	log.Printf("[Upbit] BTC: %.0f KRW", tickers[0].TradePrice)
	return tickers[0].TradePrice, nil
}
