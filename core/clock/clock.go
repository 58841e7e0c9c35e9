// Package clock converts between clock-of-day strings and minutes since
// midnight. All conversions are total: malformed input maps to zero.
package clock

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinutesPerDay is the wrap-around modulus for clock formatting.
const MinutesPerDay = 24 * 60

// Minutes converts "HH:MM" (or "HH:MM:SS"), a numeric string or a number of
// minutes into an integer minute count. Unparseable values yield 0.
func Minutes(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return Round(float64(t))
	case float64:
		return Round(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return Round(f)
	case string:
		return parse(t)
	default:
		return 0
	}
}

func parse(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ":") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return Round(f)
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0
	}
	return h*60 + m
}

// Format renders minutes as a zero-padded "HH:MM" wrapped into one day.
func Format(minutes int) string {
	m := TimeOfDay(minutes)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// TimeOfDay wraps minutes into [0, MinutesPerDay).
func TimeOfDay(minutes int) int {
	m := minutes % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}

// Round rounds f to the nearest whole minute. NaN and infinities yield 0.
func Round(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

// InWindow reports whether the time of day of t falls in [start, end).
// A window whose start is after its end spans midnight.
func InWindow(t, start, end int) bool {
	t, start, end = TimeOfDay(t), TimeOfDay(start), TimeOfDay(end)
	if start == end {
		return false
	}
	if start < end {
		return t >= start && t < end
	}
	return t >= start || t < end
}
