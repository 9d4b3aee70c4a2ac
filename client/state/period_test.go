package state_test

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkweon/asset-tracker/client/state"
	"github.com/mkweon/asset-tracker/internal/model"
)

// totalsHandler serves a fixed newest-first series, sliced by limit/offset
// the way the backend does.
func totalsHandler(t *testing.T, series []model.PeriodPointDetail, columns []model.AssetColumn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		if offset > len(series) {
			offset = len(series)
		}
		end := offset + limit
		if end > len(series) {
			end = len(series)
		}
		writeJSON(t, w, model.TotalsDetail{
			Points: series[offset:end],
			Assets: columns,
		})
	}
}

// makeSeries builds n dummy points dated backwards from 2024-03-31.
func makeSeries(n int) []model.PeriodPointDetail {
	points := make([]model.PeriodPointDetail, n)
	for i := range points {
		day := fmt.Sprintf("2024-03-%02d", 31-i)
		points[i] = model.PeriodPointDetail{
			PeriodStart: day,
			PeriodEnd:   day,
			TotalKRW:    float64((n - i) * 1000),
		}
	}
	return points
}

// WHY: there is no server-side total count; whether the "load more" control
// shows is derived entirely from the last page's length.
func TestPeriodStore_HasMore(t *testing.T) {
	t.Run("full page means more may exist", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, model.Summary{})
		})
		mux.HandleFunc("GET /totals/detail", totalsHandler(t, makeSeries(state.DefaultPageSize), nil))
		c := newTestClient(t, mux)
		store := state.NewPeriodStore(c, state.NewAssetStore(c))

		require.NoError(t, store.Init(context.Background()))

		assert.True(t, store.HasMore())
		assert.Len(t, store.Points(), state.DefaultPageSize)
	})

	t.Run("short page ends the series", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, model.Summary{})
		})
		mux.HandleFunc("GET /totals/detail", totalsHandler(t, makeSeries(3), nil))
		c := newTestClient(t, mux)
		store := state.NewPeriodStore(c, state.NewAssetStore(c))

		require.NoError(t, store.Init(context.Background()))

		assert.False(t, store.HasMore())
		assert.Len(t, store.Points(), 3)
	})
}

// WHY: paging appends at the cumulative offset; a second page must extend
// the window in order without duplicating or reshuffling the first.
func TestPeriodStore_LoadMore(t *testing.T) {
	series := makeSeries(state.DefaultPageSize + 4)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.Summary{})
	})
	mux.HandleFunc("GET /totals/detail", totalsHandler(t, series, nil))
	c := newTestClient(t, mux)
	store := state.NewPeriodStore(c, state.NewAssetStore(c))
	require.NoError(t, store.Init(context.Background()))

	require.NoError(t, store.LoadMore(context.Background()))

	got := store.Points()
	require.Len(t, got, len(series))
	assert.Equal(t, series, got, "pages must concatenate in order")
	assert.False(t, store.HasMore(), "the short second page ends the series")

	// A further LoadMore is a no-op, not a request.
	require.NoError(t, store.LoadMore(context.Background()))
	assert.Len(t, store.Points(), len(series))
}

// WHY: switching granularity replaces the window and restarts paging from
// the first page; switching to the current period must not refetch.
func TestPeriodStore_ChangePeriod(t *testing.T) {
	var requests []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.Summary{})
	})
	mux.HandleFunc("GET /totals/detail", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query().Get("period"))
		totalsHandler(t, makeSeries(state.DefaultPageSize+2), nil)(w, r)
	})
	c := newTestClient(t, mux)
	store := state.NewPeriodStore(c, state.NewAssetStore(c))
	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, store.LoadMore(context.Background()))
	require.Len(t, store.Points(), state.DefaultPageSize+2)

	require.NoError(t, store.ChangePeriod(context.Background(), model.PeriodWeekly))

	assert.Equal(t, model.PeriodWeekly, store.Period())
	assert.Len(t, store.Points(), state.DefaultPageSize, "window resets to the first page")
	assert.Equal(t, []string{"daily", "daily", "weekly"}, requests)

	// Same period again: no request.
	require.NoError(t, store.ChangePeriod(context.Background(), model.PeriodWeekly))
	assert.Len(t, requests, 3)
}

// WHY: columns are unioned across pages so an asset sold mid-window still
// gets its column; first appearance decides the order.
func TestPeriodStore_MergesColumns(t *testing.T) {
	firstPage := []model.AssetColumn{
		{ID: "a1", Name: "Apple", Symbol: "AAPL"},
		{ID: "a2", Name: "현금", Symbol: "CASH"},
	}
	secondPage := []model.AssetColumn{
		{ID: "a2", Name: "현금", Symbol: "CASH"},
		{ID: "a3", Name: "비트코인", Symbol: "BTC"},
	}

	var page int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.Summary{})
	})
	mux.HandleFunc("GET /totals/detail", func(w http.ResponseWriter, r *http.Request) {
		columns := firstPage
		points := makeSeries(state.DefaultPageSize)
		if page > 0 {
			columns = secondPage
			points = makeSeries(2)
		}
		page++
		writeJSON(t, w, model.TotalsDetail{Points: points, Assets: columns})
	})
	c := newTestClient(t, mux)
	store := state.NewPeriodStore(c, state.NewAssetStore(c))
	require.NoError(t, store.Init(context.Background()))

	require.NoError(t, store.LoadMore(context.Background()))

	want := []model.AssetColumn{
		{ID: "a1", Name: "Apple", Symbol: "AAPL"},
		{ID: "a2", Name: "현금", Symbol: "CASH"},
		{ID: "a3", Name: "비트코인", Symbol: "BTC"},
	}
	assert.Equal(t, want, store.Columns())
}

// WHY: snapshot is the one strictly sequential flow; each step's failure has
// its own Korean prefix so the user sees which stage broke.
func TestPeriodStore_Snapshot(t *testing.T) {
	t.Run("happy path reports the snapshot date", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, model.Summary{})
		})
		mux.HandleFunc("POST /refresh", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, model.Summary{TotalKRW: 500000})
		})
		mux.HandleFunc("POST /totals/snapshot", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, model.PeriodPoint{PeriodStart: "2024-03-15", PeriodEnd: "2024-03-15", TotalKRW: 500000})
		})
		mux.HandleFunc("GET /totals/detail", totalsHandler(t, makeSeries(1), nil))
		c := newTestClient(t, mux)
		assets := state.NewAssetStore(c)
		store := state.NewPeriodStore(c, assets)
		require.NoError(t, store.Init(context.Background()))

		msg, err := store.Snapshot(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "스냅샷 저장 완료 (2024-03-15)", msg)
		assert.Equal(t, 500000.0, assets.Summary().TotalKRW, "refreshed summary replaces the cache")
	})

	t.Run("failed refresh stops before the snapshot", func(t *testing.T) {
		var snapshotCalled bool
		mux := http.NewServeMux()
		mux.HandleFunc("POST /refresh", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": "Internal server error"}`)
		})
		mux.HandleFunc("POST /totals/snapshot", func(w http.ResponseWriter, r *http.Request) {
			snapshotCalled = true
		})
		c := newTestClient(t, mux)
		store := state.NewPeriodStore(c, state.NewAssetStore(c))

		_, err := store.Snapshot(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "가격 갱신 실패")
		assert.False(t, snapshotCalled, "snapshot must not run after a failed refresh")
	})

	t.Run("failed snapshot is reported as such", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /refresh", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, model.Summary{})
		})
		mux.HandleFunc("POST /totals/snapshot", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": "Internal server error"}`)
		})
		c := newTestClient(t, mux)
		store := state.NewPeriodStore(c, state.NewAssetStore(c))

		_, err := store.Snapshot(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "스냅샷 저장 실패")
	})
}
