// Package until normalizes the "until" filter accepted by image prune.
//
// The engine takes either a timestamp or a Go duration. Day and week
// suffixes are accepted here and expanded, so "7d" is sent as "168h0m0s".
package until

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var humanUnits = map[string]time.Duration{
	"d": Day,
	"w": Week,
}

var humanPattern = regexp.MustCompile(`(\d+)([wd])`)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize validates s and returns the form handed to the engine.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty until filter")
	}

	if isUnixTimestamp(s) {
		return s, nil
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return s, nil
		}
	}

	if !humanPattern.MatchString(s) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return "", fmt.Errorf("invalid until filter %q: want a timestamp or a duration (units: s, m, h, d, w)", s)
		}
		if d <= 0 {
			return "", fmt.Errorf("invalid until filter %q: duration must be positive", s)
		}
		return s, nil
	}

	d, err := parseHuman(s)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// parseHuman sums the day/week parts of s and parses what is left as a Go duration.
func parseHuman(s string) (time.Duration, error) {
	var total time.Duration
	for _, match := range humanPattern.FindAllStringSubmatch(s, -1) {
		value, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q in %q", match[1], s)
		}
		unit := humanUnits[match[2]]
		if value > int64(math.MaxInt64/unit) {
			return 0, fmt.Errorf("invalid until filter %q: %s%s is out of range", s, match[1], match[2])
		}
		if total, err = addDuration(total, time.Duration(value)*unit); err != nil {
			return 0, fmt.Errorf("invalid until filter %q: %w", s, err)
		}
	}

	rest := strings.TrimSpace(humanPattern.ReplaceAllString(s, ""))
	if rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid until filter %q: %w", s, err)
		}
		if d < 0 {
			return 0, fmt.Errorf("invalid until filter %q: negative duration", s)
		}
		if total, err = addDuration(total, d); err != nil {
			return 0, fmt.Errorf("invalid until filter %q: %w", s, err)
		}
	}
	if total <= 0 {
		return 0, fmt.Errorf("invalid until filter %q: duration must be positive", s)
	}
	return total, nil
}

// addDuration adds two non-negative durations, failing instead of wrapping.
func addDuration(a, b time.Duration) (time.Duration, error) {
	if a > math.MaxInt64-b {
		return 0, fmt.Errorf("duration out of range")
	}
	return a + b, nil
}

func isUnixTimestamp(s string) bool {
	sec, frac, _ := strings.Cut(s, ".")
	if sec == "" {
		return false
	}
	for _, part := range []string{sec, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
