package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkweon/asset-tracker/internal/model"
)

func TestParseStooqCSV(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr bool
	}{
		{
			name: "valid quote",
			body: "Symbol,Date,Time,Open,High,Low,Close,Volume\naapl.us,2024-03-01,22:00:00,179.5,181.2,178.9,180.75,5000000",
			want: 180.75,
		},
		{
			name:    "unknown symbol reports N/D",
			body:    "Symbol,Date,Time,Open,High,Low,Close,Volume\nxxxx.us,N/D,N/D,N/D,N/D,N/D,N/D,N/D",
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: true,
		},
		{
			name:    "header only",
			body:    "Symbol,Date,Time,Open,High,Low,Close,Volume",
			wantErr: true,
		},
		{
			name:    "header and value count mismatch",
			body:    "Symbol,Close\naapl.us",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStooqCSV(tt.body)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %.2f", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStooqCSV() returned unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

func TestIsUSMarketOpen(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load New York location: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"mid-session weekday", time.Date(2024, 3, 6, 12, 0, 0, 0, ny), true},
		{"exactly at open", time.Date(2024, 3, 6, 9, 30, 0, 0, ny), true},
		{"just before open", time.Date(2024, 3, 6, 9, 29, 59, 0, ny), false},
		{"exactly at close", time.Date(2024, 3, 6, 16, 0, 0, 0, ny), false},
		{"saturday", time.Date(2024, 3, 9, 12, 0, 0, 0, ny), false},
		{"sunday", time.Date(2024, 3, 10, 12, 0, 0, 0, ny), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(nil)
			c.now = func() time.Time { return tt.at }

			if got := c.isUSMarketOpen(); got != tt.want {
				t.Errorf("Expected %v at %s, got %v", tt.want, tt.at, got)
			}
		})
	}
}

// TestGetPrice_USStock exercises the Finnhub-then-FX chain against mock
// provider servers.
func TestGetPrice_USStock(t *testing.T) {
	finnhub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c": 100.0}`))
	}))
	defer finnhub.Close()

	fx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates": {"KRW": 1300.0}}`))
	}))
	defer fx.Close()

	c := NewClient(func() string { return "test-key" })
	c.finnhubURL = finnhub.URL
	c.fxPrimaryURL = fx.URL

	price, err := c.GetPrice(context.Background(), "AAPL", model.TypeStock)
	if err != nil {
		t.Fatalf("GetPrice() returned unexpected error: %v", err)
	}

	if price.KRW != 130000 {
		t.Errorf("Expected 130000 KRW, got %.2f", price.KRW)
	}
	if price.USD == nil || *price.USD != 100 {
		t.Errorf("Expected 100 USD, got %v", price.USD)
	}
	if price.Source != SourceFinnhub {
		t.Errorf("Expected source finnhub, got %s", price.Source)
	}
}

// TestGetPrice_USStock_StooqFallback verifies the fallback when Finnhub has
// no data (c=0).
func TestGetPrice_USStock_StooqFallback(t *testing.T) {
	finnhub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c": 0}`))
	}))
	defer finnhub.Close()

	stooq := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Symbol,Close\naapl.us,180.5"))
	}))
	defer stooq.Close()

	fx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates": {"KRW": 1000.0}}`))
	}))
	defer fx.Close()

	c := NewClient(func() string { return "test-key" })
	c.finnhubURL = finnhub.URL
	c.stooqURL = stooq.URL
	c.fxPrimaryURL = fx.URL

	price, err := c.GetPrice(context.Background(), "AAPL", model.TypeStock)
	if err != nil {
		t.Fatalf("GetPrice() returned unexpected error: %v", err)
	}

	if price.Source != SourceStooq {
		t.Errorf("Expected stooq fallback, got %s", price.Source)
	}
	if price.KRW != 180500 {
		t.Errorf("Expected 180500 KRW, got %.2f", price.KRW)
	}
}

func TestGetPrice_Bitcoin(t *testing.T) {
	upbit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"trade_price": 90000000.0}]`))
	}))
	defer upbit.Close()

	c := NewClient(nil)
	c.upbitURL = upbit.URL

	price, err := c.GetPrice(context.Background(), "BTC", model.TypeCrypto)
	if err != nil {
		t.Fatalf("GetPrice() returned unexpected error: %v", err)
	}

	if price.KRW != 90000000 {
		t.Errorf("Expected 90000000 KRW, got %.2f", price.KRW)
	}
	if price.Source != SourceUpbit {
		t.Errorf("Expected source upbit, got %s", price.Source)
	}
}

func TestGetPrice_UnsupportedCrypto(t *testing.T) {
	c := NewClient(nil)

	if _, err := c.GetPrice(context.Background(), "ETH", model.TypeCrypto); err == nil {
		t.Fatal("Expected error for non-BTC crypto")
	}
}

// TestGetBatch_SkipsFailedSymbols verifies that a failing provider drops the
// symbol from the result instead of failing the batch.
func TestGetBatch_SkipsFailedSymbols(t *testing.T) {
	upbit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"trade_price": 90000000.0}]`))
	}))
	defer upbit.Close()

	// No FX server configured: the US stock leg fails outright.
	c := NewClient(nil)
	c.upbitURL = upbit.URL
	c.fxPrimaryURL = "http://127.0.0.1:1"
	c.fxFallbackURL = "http://127.0.0.1:1"

	results := c.GetBatch(context.Background(), []Target{
		{Symbol: "AAPL", AssetType: model.TypeStock},
		{Symbol: "BTC", AssetType: model.TypeCrypto},
	})

	if _, ok := results["AAPL"]; ok {
		t.Error("Expected AAPL absent when FX fails")
	}
	if price, ok := results["BTC"]; !ok || price.KRW != 90000000 {
		t.Errorf("Expected BTC quoted despite the US failure, got %v", results)
	}
}
