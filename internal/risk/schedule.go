package risk

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseOffsetLocation turns a "+HH:MM" / "-HH:MM" offset string into a
// fixed-offset time.Location.
func parseOffsetLocation(offset string) (*time.Location, error) {
	if offset == "" {
		return time.UTC, nil
	}
	sign := 1
	rest := offset
	switch rest[0] {
	case '+':
		rest = rest[1:]
	case '-':
		sign = -1
		rest = rest[1:]
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected +HH:MM or -HH:MM")
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid hours: %w", err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid minutes: %w", err)
	}
	seconds := sign * (hours*3600 + minutes*60)
	return time.FixedZone(offset, seconds), nil
}

// cronSpecFor turns an "HH:MM:SS" daily reset time into a 5-field cron
// spec (seconds are dropped; robfig/cron/v3's default parser is minute
// granularity).
func cronSpecFor(hhmmss string) (string, error) {
	parts := strings.Split(hhmmss, ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("risk: invalid daily_reset_time %q, want HH:MM:SS", hhmmss)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("risk: invalid hour in daily_reset_time: %w", err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("risk: invalid minute in daily_reset_time: %w", err)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
