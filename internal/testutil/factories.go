package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mkweon/asset-tracker/internal/model"
)

// UserBuilder provides a fluent interface for creating test users.
//
// Example usage:
//
//	// Simple creation with defaults
//	user := testutil.NewUser().Build(t, db)
//
//	// Customized user
//	user := testutil.NewUser().
//	    WithUsername("alice").
//	    Build(t, db)
type UserBuilder struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	return &UserBuilder{
		ID:           MakeID(),
		Username:     MakeUsername("testuser"),
		PasswordHash: "$2a$10$testhashtesthashtesthashtesthashtesthashtesthashtestha",
		CreatedAt:    time.Now().UTC(),
	}
}

// WithID sets a custom ID.
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.ID = id
	return b
}

// WithUsername sets a custom username.
func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.Username = username
	return b
}

// WithPasswordHash sets a custom bcrypt hash.
func (b *UserBuilder) WithPasswordHash(hash string) *UserBuilder {
	b.PasswordHash = hash
	return b
}

// Build creates the user in the database and returns it.
func (b *UserBuilder) Build(t *testing.T, db *sql.DB) model.User {
	t.Helper()

	query := `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.Username, b.PasswordHash, b.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return model.User{
		ID:           b.ID,
		Username:     b.Username,
		PasswordHash: b.PasswordHash,
		CreatedAt:    b.CreatedAt,
	}
}

// AssetBuilder provides a fluent interface for creating test assets.
//
// Example usage:
//
//	asset := testutil.NewAsset(user.ID).
//	    WithSymbol("AAPL").
//	    WithPriceKRW(250000).
//	    Build(t, db)
type AssetBuilder struct {
	ID          string
	UserID      string
	Name        string
	Symbol      string
	AssetType   string
	Quantity    float64
	PriceKRW    *float64
	PriceUSD    *float64
	Source      *string
	LastUpdated *time.Time
}

// NewAsset creates an AssetBuilder with US stock defaults.
func NewAsset(userID string) *AssetBuilder {
	return &AssetBuilder{
		ID:        MakeID(),
		UserID:    userID,
		Name:      "Test Asset",
		Symbol:    MakeSymbol("TST"),
		AssetType: model.TypeStock,
		Quantity:  1,
	}
}

// WithID sets a custom ID.
func (b *AssetBuilder) WithID(id string) *AssetBuilder {
	b.ID = id
	return b
}

// WithName sets a custom display name.
func (b *AssetBuilder) WithName(name string) *AssetBuilder {
	b.Name = name
	return b
}

// WithSymbol sets a custom symbol.
func (b *AssetBuilder) WithSymbol(symbol string) *AssetBuilder {
	b.Symbol = symbol
	return b
}

// WithType sets the asset type.
func (b *AssetBuilder) WithType(assetType string) *AssetBuilder {
	b.AssetType = assetType
	return b
}

// WithQuantity sets the held quantity.
func (b *AssetBuilder) WithQuantity(qty float64) *AssetBuilder {
	b.Quantity = qty
	return b
}

// WithPriceKRW sets the last known KRW price.
func (b *AssetBuilder) WithPriceKRW(price float64) *AssetBuilder {
	b.PriceKRW = &price
	return b
}

// WithPriceUSD sets the last known USD price.
func (b *AssetBuilder) WithPriceUSD(price float64) *AssetBuilder {
	b.PriceUSD = &price
	return b
}

// WithSource sets the last price source.
func (b *AssetBuilder) WithSource(source string) *AssetBuilder {
	b.Source = &source
	return b
}

// WithLastUpdated sets the last price timestamp.
func (b *AssetBuilder) WithLastUpdated(at time.Time) *AssetBuilder {
	b.LastUpdated = &at
	return b
}

// Build creates the asset in the database and returns it.
func (b *AssetBuilder) Build(t *testing.T, db *sql.DB) model.Asset {
	t.Helper()

	query := `
		INSERT INTO assets (id, user_id, name, symbol, asset_type, quantity,
			last_price_krw, last_price_usd, last_source, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.UserID, b.Name, b.Symbol, b.AssetType,
		b.Quantity, b.PriceKRW, b.PriceUSD, b.Source, b.LastUpdated)
	if err != nil {
		t.Fatalf("Failed to create test asset: %v", err)
	}

	return model.Asset{
		ID:           b.ID,
		UserID:       b.UserID,
		Name:         b.Name,
		Symbol:       b.Symbol,
		AssetType:    b.AssetType,
		Quantity:     b.Quantity,
		LastPriceKRW: b.PriceKRW,
		LastPriceUSD: b.PriceUSD,
		Source:       b.Source,
		LastUpdated:  b.LastUpdated,
	}
}

// DailyTotalBuilder provides a fluent interface for creating daily totals.
//
// Example usage:
//
//	testutil.NewDailyTotal(user.ID, "2024-03-01", 1000000).Build(t, db)
type DailyTotalBuilder struct {
	ID         string
	UserID     string
	Day        string
	TotalKRW   float64
	SnapshotAt *time.Time
}

// NewDailyTotal creates a DailyTotalBuilder. Day is formatted YYYY-MM-DD.
func NewDailyTotal(userID, day string, total float64) *DailyTotalBuilder {
	return &DailyTotalBuilder{
		ID:       MakeID(),
		UserID:   userID,
		Day:      day,
		TotalKRW: total,
	}
}

// WithSnapshotAt marks the row as an explicit snapshot.
func (b *DailyTotalBuilder) WithSnapshotAt(at time.Time) *DailyTotalBuilder {
	b.SnapshotAt = &at
	return b
}

// Build creates the daily total in the database.
func (b *DailyTotalBuilder) Build(t *testing.T, db *sql.DB) {
	t.Helper()

	query := `
		INSERT INTO daily_totals (id, user_id, day, total_krw, snapshot_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.UserID, b.Day, b.TotalKRW, b.SnapshotAt)
	if err != nil {
		t.Fatalf("Failed to create test daily total: %v", err)
	}
}

// CreateDailyAssetTotal inserts a per-asset daily value row.
func CreateDailyAssetTotal(t *testing.T, db *sql.DB, userID, assetID, day string, value float64) {
	t.Helper()

	query := `
		INSERT INTO daily_asset_totals (id, user_id, asset_id, day, total_krw)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, MakeID(), userID, assetID, day, value)
	if err != nil {
		t.Fatalf("Failed to create test daily asset total: %v", err)
	}
}
