// Package client is the REST client for the tracker backend. Every call
// goes through one request spine that injects the bearer token, keeps it
// fresh, and converts transport and HTTP failures into the error taxonomy
// the terminal front-end shows to the user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mkweon/asset-tracker/client/session"
	"github.com/mkweon/asset-tracker/internal/model"
)

// ErrServerUnreachable wraps transport-level failures (DNS, refused
// connection). The message is shown to the user as is.
var ErrServerUnreachable = errors.New("서버에 연결할 수 없습니다")

// APIError is a non-2xx response with its parsed message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the backend.
type Client struct {
	base    string
	http    *http.Client
	session *session.Manager

	logOnce sync.Once
	// quiet suppresses the base URL log line, set in tests.
	quiet bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithQuietLog suppresses the one-time base URL log line.
func WithQuietLog() Option {
	return func(c *Client) { c.quiet = true }
}

// New creates a client. onLogout runs whenever the session is forcibly
// ended (expired or rejected token); may be nil.
func New(baseURL string, store *session.Store, onLogout func(), opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	c.session = session.NewManager(store, c.exchangeToken, onLogout)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session exposes the session manager for expiry display and logout.
func (c *Client) Session() *session.Manager {
	return c.session
}

// TokenResponse is the body of the auth endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LookupResult is a resolved symbol name.
type LookupResult struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	AssetType string `json:"asset_type"`
}

// PricingState is the masked provider key state.
type PricingState struct {
	Configured bool   `json:"configured"`
	MaskedKey  string `json:"masked_key"`
}

// Register creates an account and stores the issued token.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/register", body, &resp, authless); err != nil {
		return err
	}
	return c.session.SetToken(resp.AccessToken)
}

// Login authenticates and stores the issued token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp, authless); err != nil {
		return err
	}
	return c.session.SetToken(resp.AccessToken)
}

// Health checks backend availability without auth.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, authless)
}

// Assets lists the user's holdings.
func (c *Client) Assets(ctx context.Context) ([]model.Asset, error) {
	var assets []model.Asset
	err := c.do(ctx, http.MethodGet, "/assets", nil, &assets, authed)
	return assets, err
}

// CreateAsset adds a holding.
func (c *Client) CreateAsset(ctx context.Context, in model.AssetCreate) (model.Asset, error) {
	var asset model.Asset
	err := c.do(ctx, http.MethodPost, "/assets", in, &asset, authed)
	return asset, err
}

// UpdateAsset partially updates a holding.
func (c *Client) UpdateAsset(ctx context.Context, id string, in model.AssetUpdate) (model.Asset, error) {
	var asset model.Asset
	err := c.do(ctx, http.MethodPut, "/assets/"+url.PathEscape(id), in, &asset, authed)
	return asset, err
}

// DeleteAsset removes a holding.
func (c *Client) DeleteAsset(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/assets/"+url.PathEscape(id), nil, nil, authed)
}

// RefreshAsset re-fetches one asset's price.
func (c *Client) RefreshAsset(ctx context.Context, id string) (model.Asset, error) {
	var asset model.Asset
	err := c.do(ctx, http.MethodPost, "/assets/"+url.PathEscape(id)+"/refresh", nil, &asset, authed)
	return asset, err
}

// Refresh re-fetches all prices server-side and returns the new summary.
// A non-empty Errors list in the summary is partial degradation, not a
// failure.
func (c *Client) Refresh(ctx context.Context) (model.Summary, error) {
	var summary model.Summary
	err := c.do(ctx, http.MethodPost, "/refresh", nil, &summary, authed)
	return summary, err
}

// Summary returns the portfolio summary from stored prices.
func (c *Client) Summary(ctx context.Context) (model.Summary, error) {
	var summary model.Summary
	err := c.do(ctx, http.MethodGet, "/summary", nil, &summary, authed)
	return summary, err
}

// Totals returns one page of the aggregated totals series, newest first.
func (c *Client) Totals(ctx context.Context, period string, limit, offset int) ([]model.PeriodPoint, error) {
	var points []model.PeriodPoint
	err := c.do(ctx, http.MethodGet, totalsPath("/totals", period, limit, offset), nil, &points, authed)
	return points, err
}

// TotalsDetail returns one page of the series with per-asset values.
func (c *Client) TotalsDetail(ctx context.Context, period string, limit, offset int) (model.TotalsDetail, error) {
	var detail model.TotalsDetail
	err := c.do(ctx, http.MethodGet, totalsPath("/totals/detail", period, limit, offset), nil, &detail, authed)
	return detail, err
}

// Snapshot persists an immutable period point from current prices.
func (c *Client) Snapshot(ctx context.Context) (model.PeriodPoint, error) {
	var point model.PeriodPoint
	err := c.do(ctx, http.MethodPost, "/totals/snapshot", nil, &point, authed)
	return point, err
}

// Lookup resolves a symbol to its listed name, best effort.
func (c *Client) Lookup(ctx context.Context, symbol, assetType string) (LookupResult, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("asset_type", assetType)
	var result LookupResult
	err := c.do(ctx, http.MethodGet, "/lookup?"+q.Encode(), nil, &result, authed)
	return result, err
}

// PricingSettings returns the masked provider key state.
func (c *Client) PricingSettings(ctx context.Context) (PricingState, error) {
	var state PricingState
	err := c.do(ctx, http.MethodGet, "/settings/pricing", nil, &state, authed)
	return state, err
}

// SetPricingKey stores the Finnhub API key server-side.
func (c *Client) SetPricingKey(ctx context.Context, key string) (PricingState, error) {
	body := map[string]string{"finnhub_api_key": key}
	var state PricingState
	err := c.do(ctx, http.MethodPut, "/settings/pricing", body, &state, authed)
	return state, err
}

func totalsPath(base, period string, limit, offset int) string {
	q := url.Values{}
	q.Set("period", period)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return base + "?" + q.Encode()
}

// exchangeToken is the session manager's refresh call. It bypasses the
// usual 401 interception so the manager can decide what a rejection means.
func (c *Client) exchangeToken(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/refresh-token", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", session.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.parseError(resp)
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	return tr.AccessToken, nil
}

const (
	authed   = true
	authless = false
)

// do is the request spine shared by every endpoint.
func (c *Client) do(ctx context.Context, method, path string, body, out any, auth bool) error {
	c.logOnce.Do(func() {
		if !c.quiet {
			log.Printf("API base URL: %s", c.base)
		}
	})

	if auth {
		if err := c.session.EnsureFresh(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && auth {
		c.session.Logout()
		return session.ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseError extracts the most specific message available from a non-2xx
// response: detail, then error, then message, then raw body, then status
// text.
func (c *Client) parseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var body struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	message := ""
	if err := json.Unmarshal(data, &body); err == nil {
		switch {
		case body.Detail != "":
			message = body.Detail
		case body.Error != "":
			message = body.Error
		case body.Message != "":
			message = body.Message
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(data))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
