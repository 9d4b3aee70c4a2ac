// Package kst provides Korea Standard Time helpers. All business dates in
// the system (daily totals, snapshot days) are anchored to the KST calendar
// regardless of server timezone.
package kst

import "time"

// Location is Korea Standard Time. KST has no daylight saving, so a fixed
// zone is equivalent to loading Asia/Seoul and avoids a tzdata dependency.
var Location = time.FixedZone("KST", 9*60*60)

const dayFormat = "2006-01-02"

// Now returns the current time in KST.
func Now() time.Time {
	return time.Now().In(Location)
}

// Today returns the current KST calendar day at midnight.
func Today() time.Time {
	return Midnight(Now())
}

// Midnight truncates t to its KST calendar day.
func Midnight(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.In(Location).Format(dayFormat)
}

// ParseDay parses a YYYY-MM-DD string as a KST midnight.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dayFormat, s, Location)
}
