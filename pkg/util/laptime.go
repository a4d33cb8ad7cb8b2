package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLapTime parses a lap time in "M:SS.mmm" or plain seconds form.
// Returns (seconds, true) if either worked.
func ParseLapTime(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		mins, err := strconv.Atoi(s[:i])
		if err != nil || mins < 0 {
			return 0, false
		}
		secs, err := strconv.ParseFloat(s[i+1:], 64)
		if err != nil || secs < 0 || secs >= 60 {
			return 0, false
		}
		return float64(mins)*60 + secs, true
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return secs, true
}

// ParseLapTimeDefault parses a lap time or returns def if empty/invalid.
func ParseLapTimeDefault(s string, def float64) float64 {
	if v, ok := ParseLapTime(s); ok {
		return v
	}
	return def
}

// FormatLapTime renders seconds as "M:SS.mmm".
func FormatLapTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	mins := int(seconds) / 60
	rem := seconds - float64(mins)*60
	return fmt.Sprintf("%d:%06.3f", mins, rem)
}
