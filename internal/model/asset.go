package model

import (
	"strings"
	"time"
)

// Canonical asset type strings as stored in the database. Anything outside
// this set is a user-defined custom type (priced manually, never fetched).
const (
	TypeStock   = "stock"    // US stock
	TypeKrStock = "kr_stock" // Korean stock
	TypeCrypto  = "crypto"   // crypto, BTC only
	TypeCash    = "cash"
)

// AssetKind is the classified form of the free-text asset_type column.
type AssetKind int

const (
	KindStock AssetKind = iota
	KindKrStock
	KindCrypto
	KindCash
	KindCustom
)

// KindOf classifies an asset_type string. The comparison is case-insensitive
// for the canonical types; everything else is custom, including the empty
// string. Callers must always classify the current value rather than caching
// the result, since asset_type is editable.
func KindOf(assetType string) AssetKind {
	switch strings.ToLower(assetType) {
	case TypeStock:
		return KindStock
	case TypeKrStock:
		return KindKrStock
	case TypeCrypto:
		return KindCrypto
	case TypeCash:
		return KindCash
	default:
		return KindCustom
	}
}

// Fetchable reports whether a price feed exists for this kind.
// Cash and custom assets are valued from user input only.
func (k AssetKind) Fetchable() bool {
	return k == KindStock || k == KindKrStock || k == KindCrypto
}

// Asset represents a user-owned holding.
type Asset struct {
	ID           string     `json:"id"`
	UserID       string     `json:"-"`
	Name         string     `json:"name"`
	Symbol       string     `json:"symbol"`
	AssetType    string     `json:"asset_type"`
	Quantity     float64    `json:"quantity"`
	LastPriceKRW *float64   `json:"last_price_krw"`
	LastPriceUSD *float64   `json:"last_price_usd"`
	LastUpdated  *time.Time `json:"last_updated"`
	ValueKRW     *float64   `json:"value_krw"`
	Source       *string    `json:"source"`
}

// Kind classifies the asset's current type.
func (a Asset) Kind() AssetKind {
	return KindOf(a.AssetType)
}

// ComputeValue fills ValueKRW from the stored price. The server is the
// source of truth for value_krw; this runs on every asset returned to a
// client. Assets with no known price keep a nil value.
func (a *Asset) ComputeValue() {
	if a.LastPriceKRW == nil {
		a.ValueKRW = nil
		return
	}
	v := *a.LastPriceKRW * a.Quantity
	a.ValueKRW = &v
}

// AssetCreate is the payload for creating an asset.
type AssetCreate struct {
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	AssetType string   `json:"asset_type"`
	Quantity  float64  `json:"quantity"`
	PriceKRW  *float64 `json:"price_krw,omitempty"`
	PriceUSD  *float64 `json:"price_usd,omitempty"`
}

// AssetUpdate is the payload for updating an asset. Quantity is required,
// the rest are applied only when present.
type AssetUpdate struct {
	Name      *string  `json:"name,omitempty"`
	Symbol    *string  `json:"symbol,omitempty"`
	AssetType *string  `json:"asset_type,omitempty"`
	Quantity  float64  `json:"quantity"`
	PriceKRW  *float64 `json:"price_krw,omitempty"`
}
