// Package derive holds the pure presentation derivations over loaded
// portfolio state: sorting, filtering, delta classification, allocation
// buckets and Korean time formatting. Nothing here performs I/O.
package derive

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mkweon/asset-tracker/internal/model"
)

// SmallAssetThreshold is the KRW value under which an asset is hidden by
// the small-asset filter.
const SmallAssetThreshold = 300_000

// collator orders mixed Korean and Latin names. collate.Collator is not
// safe for concurrent use, hence the constructor per call site below.
func newCollator() *collate.Collator {
	return collate.New(language.Korean)
}

// value is price times quantity with missing price counting as zero, the
// ordering key for listings.
func value(a model.Asset) float64 {
	if a.LastPriceKRW == nil {
		return 0
	}
	return *a.LastPriceKRW * a.Quantity
}

// SortAssets returns the assets ordered by descending KRW value, ties
// broken by ascending Korean-collation name order. The input is not
// modified.
func SortAssets(assets []model.Asset) []model.Asset {
	sorted := make([]model.Asset, len(assets))
	copy(sorted, assets)

	c := newCollator()
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, vj := value(sorted[i]), value(sorted[j])
		if vi != vj {
			return vi > vj
		}
		return c.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})
	return sorted
}

// FilterSmall drops assets valued under SmallAssetThreshold and reports
// how many were hidden.
func FilterSmall(assets []model.Asset) (kept []model.Asset, hidden int) {
	kept = make([]model.Asset, 0, len(assets))
	for _, a := range assets {
		if value(a) < SmallAssetThreshold {
			hidden++
			continue
		}
		kept = append(kept, a)
	}
	return kept, hidden
}

// Search returns assets whose name or symbol contains the query,
// case-insensitive. An empty query matches everything.
func Search(assets []model.Asset, query string) []model.Asset {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return assets
	}

	matched := make([]model.Asset, 0, len(assets))
	for _, a := range assets {
		if strings.Contains(strings.ToLower(a.Name), query) ||
			strings.Contains(strings.ToLower(a.Symbol), query) {
			matched = append(matched, a)
		}
	}
	return matched
}

// Delta is the direction of change between two adjacent series points.
type Delta int

const (
	DeltaFlat Delta = iota
	DeltaUp
	DeltaDown
)

// Classify compares a current value against the previous point. A missing
// previous point is always flat, never a change.
func Classify(current float64, previous *float64) Delta {
	if previous == nil {
		return DeltaFlat
	}
	switch {
	case current > *previous:
		return DeltaUp
	case current < *previous:
		return DeltaDown
	default:
		return DeltaFlat
	}
}

// Allocation bucket labels. Bitcoin and the catch-all are Korean labels by
// contract.
const (
	BucketUSStock = "미국주식"
	BucketKrStock = "국내주식"
	BucketBitcoin = "비트코인"
	BucketOther   = "기타"
)

// Bucket is one allocation slice.
type Bucket struct {
	Label    string
	ValueKRW float64
	// Share is the percentage of the total, rounded to one decimal.
	Share float64
}

// Allocate groups assets into the fixed allocation buckets by summed KRW
// value. Assets with zero or negative value are excluded entirely. Shares
// are rounded to one decimal place and buckets ordered by descending share.
func Allocate(assets []model.Asset) []Bucket {
	sums := map[string]float64{}
	total := 0.0

	for _, a := range assets {
		v := value(a)
		if v <= 0 {
			continue
		}
		sums[bucketFor(a)] += v
		total += v
	}
	if total == 0 {
		return nil
	}

	buckets := make([]Bucket, 0, len(sums))
	for label, sum := range sums {
		share := decimal.NewFromFloat(sum / total * 100).Round(1)
		shareF, _ := share.Float64()
		buckets = append(buckets, Bucket{Label: label, ValueKRW: sum, Share: shareF})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Share != buckets[j].Share {
			return buckets[i].Share > buckets[j].Share
		}
		return buckets[i].Label < buckets[j].Label
	})
	return buckets
}

// bucketFor maps an asset to its allocation bucket. Bitcoin means crypto
// with symbol BTC, case-insensitive; everything non-canonical lands in the
// catch-all with cash and non-BTC crypto.
func bucketFor(a model.Asset) string {
	switch a.Kind() {
	case model.KindStock:
		return BucketUSStock
	case model.KindKrStock:
		return BucketKrStock
	case model.KindCrypto:
		if strings.EqualFold(a.Symbol, "BTC") {
			return BucketBitcoin
		}
		return BucketOther
	default:
		return BucketOther
	}
}
