package dbs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationPattern     = regexp.MustCompile(`(?i)(\d+)([dhms])`)
	fullDurationPattern = regexp.MustCompile(`(?i)^(\d+[dhms])+$`)
)

var durationUnits = map[string]time.Duration{
	"d": 24 * time.Hour,
	"h": time.Hour,
	"m": time.Minute,
	"s": time.Second,
}

// ParseRetentionInterval converts strings like "30d", "12h" or "1d12h" into a time.Duration.
// The result is always positive; values that do not fit in a time.Duration are rejected.
func ParseRetentionInterval(input string) (time.Duration, error) {
	value := strings.TrimSpace(input)
	if value == "" {
		return 0, fmt.Errorf("duration cannot be empty")
	}
	if !fullDurationPattern.MatchString(value) {
		return 0, fmt.Errorf("invalid duration format: %s", input)
	}

	total := time.Duration(0)
	for _, parts := range durationPattern.FindAllStringSubmatch(value, -1) {
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration number: %w", err)
		}
		unit := durationUnits[strings.ToLower(parts[2])]
		if n > int64(math.MaxInt64/unit) {
			return 0, fmt.Errorf("duration out of range: %s", input)
		}
		d := time.Duration(n) * unit
		if total > math.MaxInt64-d {
			return 0, fmt.Errorf("duration out of range: %s", input)
		}
		total += d
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration must be positive: %s", input)
	}
	return total, nil
}
