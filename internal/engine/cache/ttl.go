package cache

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTL is the default entry lifetime (5 minutes).
	DefaultTTL = 5 * time.Minute

	// MinTTL is the smallest TTL accepted from user input.
	MinTTL = time.Second

	// MaxTTL is the largest TTL accepted from user input (7 days).
	MaxTTL = 7 * 24 * time.Hour

	// DefaultMaxEntries bounds the number of live entries.
	DefaultMaxEntries = 10000

	// DefaultCleanupInterval is how often the janitor sweeps expired entries.
	DefaultCleanupInterval = time.Minute

	minutesPerHour = 60
	hoursPerDay    = 24
)

// ErrInvalidTTL is returned for non-positive or out-of-range TTLs.
var ErrInvalidTTL = errors.New("invalid cache TTL")

// ValidateTTL checks a TTL parsed from user input against MinTTL and MaxTTL.
func ValidateTTL(d time.Duration) error {
	if d < MinTTL || d > MaxTTL {
		return fmt.Errorf("%w: %s is outside [%s, %s]", ErrInvalidTTL, d, MinTTL, MaxTTL)
	}
	return nil
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "500ms", "1h", "30m", "5m30s".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

// ParseTTL parses a TTL string in various formats:
// - Integer seconds: "300".
// - Duration string: "5m", "1h30m".
func ParseTTL(s string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		d := time.Duration(seconds) * time.Second
		if validErr := ValidateTTL(d); validErr != nil {
			return 0, validErr
		}
		return d, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	if validErr := ValidateTTL(d); validErr != nil {
		return 0, validErr
	}

	return d, nil
}
