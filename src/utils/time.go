package utils

import (
	"time"
)

// UniqueKeyLayout renders millisecond chart timestamps so that lexicographic
// order matches chronological order, which the stores rely on for lookups.
const UniqueKeyLayout = "2006-01-02 15:04:05.000"

// FormatUniqueKey converts a chart-time in Unix milliseconds into the key
// format used to correlate alerts, orders and errors across the stores.
func FormatUniqueKey(unixMilli int64) string {
	return time.UnixMilli(unixMilli).UTC().Format(UniqueKeyLayout)
}

// ParseUniqueKey is the inverse of FormatUniqueKey.
func ParseUniqueKey(key string) (time.Time, error) {
	return time.ParseInLocation(UniqueKeyLayout, key, time.UTC)
}
