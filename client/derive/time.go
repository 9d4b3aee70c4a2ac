package derive

import (
	"fmt"
	"time"

	"github.com/mkweon/asset-tracker/internal/kst"
)

// Timestamp layouts the backend emits. Naive forms carry no offset and are
// interpreted as KST, a business rule rather than a platform default.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseKST parses a backend timestamp. Values with an explicit offset keep
// it; values without one are read as KST (UTC+9).
func ParseKST(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, kst.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", value)
}

// FormatRelative renders a timestamp as Korean relative time: "N분 전",
// "N시간 전", "N일 전" for the past and the matching "…후" forms for the
// future.
func FormatRelative(t, now time.Time) string {
	diff := now.Sub(t)
	suffix := "전"
	if diff < 0 {
		diff = -diff
		suffix = "후"
	}

	switch {
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("%d분 %s", minutes, suffix)
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d시간 %s", int(diff.Hours()), suffix)
	default:
		return fmt.Sprintf("%d일 %s", int(diff.Hours()/24), suffix)
	}
}
