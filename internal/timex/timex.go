// Package timex holds millisecond-epoch helpers. Every timestamp persisted by
// the engine is an int64 count of milliseconds since the Unix epoch (UTC).
package timex

import (
	"fmt"
	"time"
)

// Layout is the interchange format for timestamps: ISO-8601 with
// millisecond precision and a literal Z.
const Layout = "2006-01-02T15:04:05.000Z"

// NowMs returns the current time in epoch milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// FormatMs renders ms using Layout. Zero renders as an empty string.
func FormatMs(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(Layout)
}

// ParseMs is the inverse of FormatMs. An empty string parses as zero.
func ParseMs(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		// Older files may carry a numeric offset instead of Z.
		t2, err2 := time.Parse(time.RFC3339Nano, s)
		if err2 != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t = t2
	}
	return t.UnixMilli(), nil
}
