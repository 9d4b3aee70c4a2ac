package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/mkweon/asset-tracker/internal/api"
	"github.com/mkweon/asset-tracker/internal/auth"
	"github.com/mkweon/asset-tracker/internal/config"
	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/pricing"
	"github.com/mkweon/asset-tracker/internal/repository"
	"github.com/mkweon/asset-tracker/internal/service"
	"github.com/mkweon/asset-tracker/internal/testutil"
)

// testServer wires the full router against an in-memory database so tests
// exercise routing, auth middleware and handlers together.
type testServer struct {
	srv    *httptest.Server
	db     *sql.DB
	quoter *testutil.MockQuoter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	quoter := testutil.NewMockQuoter()

	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Failed to generate fernet key: %v", err)
	}

	settingsRepo, err := repository.NewSettingsRepository(db, key.Encode())
	if err != nil {
		t.Fatalf("Failed to create settings repository: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	totalsRepo := repository.NewTotalsRepository(db)

	settingsService := service.NewSettingsService(settingsRepo, "")
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	authService := service.NewAuthService(userRepo, issuer)
	assetService := service.NewAssetService(assetRepo, totalsRepo, quoter)
	totalsService := service.NewTotalsService(assetRepo, totalsRepo, userRepo, quoter)

	cfg := &config.Config{}
	cfg.CORS.AllowedOrigins = []string{"*"}

	router := api.NewRouter(cfg, db, authService, assetService, totalsService, settingsService, quoter)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, db: db, quoter: quoter}
}

// request issues a JSON request, returning status and decoded body bytes.
func (ts *testServer) request(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp.StatusCode, data
}

// registerUser creates an account and returns its bearer token.
func (ts *testServer) registerUser(t *testing.T, username string) string {
	t.Helper()

	status, body := ts.request(t, http.MethodPost, "/register", "", map[string]string{
		"username": username, "password": "password",
	})
	if status != http.StatusOK {
		t.Fatalf("Register failed with status %d: %s", status, body)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Failed to decode token response: %v", err)
	}
	return resp.AccessToken
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.request(t, http.MethodGet, "/health", "", nil)

	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var resp map[string]bool
	if err := json.Unmarshal(body, &resp); err != nil || !resp["ok"] {
		t.Errorf("Expected ok body, got %s", body)
	}
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("register issues a usable token", func(t *testing.T) {
		ts := newTestServer(t)
		token := ts.registerUser(t, "alice")

		status, _ := ts.request(t, http.MethodGet, "/assets", token, nil)
		if status != http.StatusOK {
			t.Errorf("Expected token to grant access, got %d", status)
		}
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		ts := newTestServer(t)
		ts.registerUser(t, "alice")

		status, _ := ts.request(t, http.MethodPost, "/register", "", map[string]string{
			"username": "alice", "password": "password",
		})
		if status != http.StatusConflict {
			t.Errorf("Expected 409, got %d", status)
		}
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		ts := newTestServer(t)
		ts.registerUser(t, "alice")

		status, _ := ts.request(t, http.MethodPost, "/login", "", map[string]string{
			"username": "alice", "password": "wrong",
		})
		if status != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", status)
		}
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		ts := newTestServer(t)

		status, _ := ts.request(t, http.MethodGet, "/assets", "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", status)
		}
	})

	t.Run("refresh-token issues a new token", func(t *testing.T) {
		ts := newTestServer(t)
		token := ts.registerUser(t, "alice")

		status, body := ts.request(t, http.MethodPost, "/refresh-token", token, nil)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", status, body)
		}
		var resp struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(body, &resp); err != nil || resp.AccessToken == "" {
			t.Errorf("Expected fresh token, got %s", body)
		}
	})
}

func TestAssetEndpoints(t *testing.T) {
	t.Run("full CRUD lifecycle", func(t *testing.T) {
		ts := newTestServer(t)
		token := ts.registerUser(t, "alice")

		// Create a cash asset (no price feed involved).
		status, body := ts.request(t, http.MethodPost, "/assets", token, map[string]any{
			"name": "현금", "symbol": "CASH", "asset_type": "cash",
			"quantity": 1, "price_krw": 1000000,
		})
		if status != http.StatusOK {
			t.Fatalf("Create failed with %d: %s", status, body)
		}
		var created model.Asset
		if err := json.Unmarshal(body, &created); err != nil {
			t.Fatalf("Failed to decode created asset: %v", err)
		}
		if created.ValueKRW == nil || *created.ValueKRW != 1000000 {
			t.Errorf("Expected value 1000000, got %v", created.ValueKRW)
		}

		// Update quantity.
		status, body = ts.request(t, http.MethodPut, "/assets/"+created.ID, token, map[string]any{
			"quantity": 2,
		})
		if status != http.StatusOK {
			t.Fatalf("Update failed with %d: %s", status, body)
		}
		var updated model.Asset
		if err := json.Unmarshal(body, &updated); err != nil {
			t.Fatalf("Failed to decode updated asset: %v", err)
		}
		if updated.Quantity != 2 {
			t.Errorf("Expected quantity 2, got %g", updated.Quantity)
		}

		// List.
		status, body = ts.request(t, http.MethodGet, "/assets", token, nil)
		if status != http.StatusOK {
			t.Fatalf("List failed with %d", status)
		}
		var assets []model.Asset
		if err := json.Unmarshal(body, &assets); err != nil {
			t.Fatalf("Failed to decode asset list: %v", err)
		}
		if len(assets) != 1 {
			t.Fatalf("Expected 1 asset, got %d", len(assets))
		}

		// Delete.
		status, _ = ts.request(t, http.MethodDelete, "/assets/"+created.ID, token, nil)
		if status != http.StatusOK {
			t.Fatalf("Delete failed with %d", status)
		}
		testutil.AssertRowCount(t, ts.db, "assets", 0)
	})

	t.Run("assets are scoped per user", func(t *testing.T) {
		ts := newTestServer(t)
		alice := ts.registerUser(t, "alice")
		bob := ts.registerUser(t, "bob")

		status, body := ts.request(t, http.MethodPost, "/assets", alice, map[string]any{
			"name": "현금", "symbol": "CASH", "asset_type": "cash", "quantity": 1,
		})
		if status != http.StatusOK {
			t.Fatalf("Create failed with %d: %s", status, body)
		}
		var created model.Asset
		if err := json.Unmarshal(body, &created); err != nil {
			t.Fatalf("Failed to decode created asset: %v", err)
		}

		status, _ = ts.request(t, http.MethodDelete, "/assets/"+created.ID, bob, nil)
		if status != http.StatusNotFound {
			t.Errorf("Expected 404 for foreign asset, got %d", status)
		}
	})

	t.Run("unsupported crypto is a bad request", func(t *testing.T) {
		ts := newTestServer(t)
		token := ts.registerUser(t, "alice")

		status, body := ts.request(t, http.MethodPost, "/assets", token, map[string]any{
			"name": "Ethereum", "symbol": "ETH", "asset_type": "crypto", "quantity": 1,
		})
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", status, body)
		}
	})
}

func TestRefreshEndpoint(t *testing.T) {
	t.Run("partial failure is a 200 with errors", func(t *testing.T) {
		ts := newTestServer(t)
		token := ts.registerUser(t, "alice")
		ts.quoter.SetPrice("BTC", 90000000, pricing.SourceUpbit)

		// BTC resolves; AAPL has no mock price and fails.
		for _, payload := range []map[string]any{
			{"name": "비트코인", "symbol": "BTC", "asset_type": "crypto", "quantity": 1},
			{"name": "Apple", "symbol": "AAPL", "asset_type": "stock", "quantity": 1},
		} {
			status, body := ts.request(t, http.MethodPost, "/assets", token, payload)
			if status != http.StatusOK {
				t.Fatalf("Create failed with %d: %s", status, body)
			}
		}

		status, body := ts.request(t, http.MethodPost, "/refresh", token, nil)
		if status != http.StatusOK {
			t.Fatalf("Expected 200 despite partial failure, got %d: %s", status, body)
		}

		var summary model.Summary
		if err := json.Unmarshal(body, &summary); err != nil {
			t.Fatalf("Failed to decode summary: %v", err)
		}
		if len(summary.Errors) != 1 {
			t.Fatalf("Expected 1 error, got %v", summary.Errors)
		}
		want := "AAPL 가격 조회 실패 (미국주식 API)"
		if summary.Errors[0] != want {
			t.Errorf("Expected %q, got %q", want, summary.Errors[0])
		}
		if summary.TotalKRW != 90000000 {
			t.Errorf("Expected total 90000000, got %.0f", summary.TotalKRW)
		}
	})
}

func TestTotalsEndpoints(t *testing.T) {
	t.Run("invalid period is a bad request", func(t *testing.T) {
		ts := newTestServer(t)
		token := ts.registerUser(t, "alice")

		status, _ := ts.request(t, http.MethodGet, "/totals?period=hourly", token, nil)
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", status)
		}
	})

	t.Run("snapshot records a point", func(t *testing.T) {
		ts := newTestServer(t)
		token := ts.registerUser(t, "alice")

		status, body := ts.request(t, http.MethodPost, "/assets", token, map[string]any{
			"name": "현금", "symbol": "CASH", "asset_type": "cash",
			"quantity": 1, "price_krw": 500000,
		})
		if status != http.StatusOK {
			t.Fatalf("Create failed with %d: %s", status, body)
		}

		status, body = ts.request(t, http.MethodPost, "/totals/snapshot", token, nil)
		if status != http.StatusOK {
			t.Fatalf("Snapshot failed with %d: %s", status, body)
		}
		var point model.PeriodPoint
		if err := json.Unmarshal(body, &point); err != nil {
			t.Fatalf("Failed to decode point: %v", err)
		}
		if point.TotalKRW != 500000 {
			t.Errorf("Expected total 500000, got %.0f", point.TotalKRW)
		}

		status, body = ts.request(t, http.MethodGet, "/totals?period=daily", token, nil)
		if status != http.StatusOK {
			t.Fatalf("Totals failed with %d", status)
		}
		var points []model.PeriodPoint
		if err := json.Unmarshal(body, &points); err != nil {
			t.Fatalf("Failed to decode points: %v", err)
		}
		if len(points) != 1 {
			t.Errorf("Expected 1 point after snapshot, got %d", len(points))
		}
	})
}

func TestLookupEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "alice")
	ts.quoter.Names["AAPL"] = "Apple Inc."

	t.Run("resolves known symbols", func(t *testing.T) {
		status, body := ts.request(t, http.MethodGet, "/lookup?symbol=AAPL&asset_type=stock", token, nil)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", status, body)
		}
		var resp struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(body, &resp); err != nil || resp.Name != "Apple Inc." {
			t.Errorf("Expected Apple Inc., got %s", body)
		}
	})

	t.Run("unknown symbol is not found", func(t *testing.T) {
		status, _ := ts.request(t, http.MethodGet, "/lookup?symbol=ZZZZ&asset_type=stock", token, nil)
		if status != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", status)
		}
	})

	t.Run("invalid asset type is a bad request", func(t *testing.T) {
		status, _ := ts.request(t, http.MethodGet, "/lookup?symbol=BTC&asset_type=crypto", token, nil)
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", status)
		}
	})
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "alice")

	status, body := ts.request(t, http.MethodGet, "/settings/pricing", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var state service.FinnhubKeyState
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if state.Configured {
		t.Error("Expected no key configured initially")
	}

	status, body = ts.request(t, http.MethodPut, "/settings/pricing", token, map[string]string{
		"finnhub_api_key": "secret-key-1234",
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if !state.Configured || state.MaskedKey != "****1234" {
		t.Errorf("Expected masked key ****1234, got %+v", state)
	}

	// The stored value must not be plaintext.
	var stored string
	if err := ts.db.QueryRow(`SELECT value FROM settings`).Scan(&stored); err != nil {
		t.Fatalf("Failed to read stored setting: %v", err)
	}
	if stored == "secret-key-1234" {
		t.Error("Expected the stored key to be encrypted")
	}
}
