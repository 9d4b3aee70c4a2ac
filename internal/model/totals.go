package model

import "time"

// Summary is the aggregate view of a user's portfolio. DailyChangeKRW is
// today's stored total minus yesterday's; zero when today has no row yet.
type Summary struct {
	TotalKRW       float64    `json:"total_krw"`
	DailyChangeKRW float64    `json:"daily_change_krw"`
	Assets         []Asset    `json:"assets"`
	Errors         []string   `json:"errors"`
	LastRefreshed  *time.Time `json:"last_refreshed"`
	NextRefreshAt  *time.Time `json:"next_refresh_at"`
}

// Period granularities for the totals series.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// ValidPeriod reports whether p names a supported granularity.
func ValidPeriod(p string) bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

// DailyTotal is one stored portfolio total for a calendar day (KST).
// SnapshotAt is set only when the row was written by an explicit snapshot.
type DailyTotal struct {
	ID         string
	UserID     string
	Day        time.Time
	TotalKRW   float64
	SnapshotAt *time.Time
}

// DailyAssetTotal is one asset's stored value for a calendar day (KST).
type DailyAssetTotal struct {
	ID       string
	UserID   string
	AssetID  string
	Day      time.Time
	TotalKRW float64
}

// PeriodPoint is one row of the aggregated totals series. Dates are
// formatted YYYY-MM-DD.
type PeriodPoint struct {
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	TotalKRW    float64 `json:"total_krw"`
}

// AssetColumn identifies an asset in the totals detail table header.
type AssetColumn struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// AssetValue is one asset's value inside a detailed period point.
type AssetValue struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	TotalKRW float64 `json:"total_krw"`
}

// PeriodPointDetail is one aggregated row including per-asset values.
type PeriodPointDetail struct {
	PeriodStart string       `json:"period_start"`
	PeriodEnd   string       `json:"period_end"`
	TotalKRW    float64      `json:"total_krw"`
	Assets      []AssetValue `json:"assets"`
	SnapshotAt  *time.Time   `json:"snapshot_at"`
}

// TotalsDetail is the full payload of the totals detail endpoint.
type TotalsDetail struct {
	Assets []AssetColumn       `json:"assets"`
	Points []PeriodPointDetail `json:"points"`
}
