package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/mkweon/asset-tracker/internal/apperrors"
)

// fetchUSDKRWRate returns the current USD/KRW rate, trying open.er-api.com
// first and frankfurter.app as a fallback.
func (c *Client) fetchUSDKRWRate(ctx context.Context) (float64, error) {
	rate, err := c.fetchRateFrom(ctx, c.fxPrimaryURL)
	if err == nil {
		log.Printf("USD/KRW rate from open.er-api.com: %.2f", rate)
		return rate, nil
	}
	log.Printf("Primary FX source failed: %v", err)

	rate, err = c.fetchRateFrom(ctx, c.fxFallbackURL+"?from=USD&to=KRW")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrExchangeRateFailed, err)
	}
	log.Printf("USD/KRW rate from frankfurter.app: %.2f", rate)
	return rate, nil
}

// Both FX providers share the {"rates": {"KRW": n}} response shape.
func (c *Client) fetchRateFrom(ctx context.Context, url string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fx http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, err
	}

	rate, ok := payload.Rates["KRW"]
	if !ok {
		return 0, fmt.Errorf("missing KRW rate in response")
	}
	return rate, nil
}
