package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JoseManuelPS/KuLo/internal/kuloerr"
)

// DefaultSinceSeconds is the --since default (10m) in seconds. The CLI flag
// carries its default as the string "10m" and does not read this constant.
const DefaultSinceSeconds = 600

var timeUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

var durationPattern = regexp.MustCompile(`^(\d+)([smhdSMHD])$`)

// ParseDuration parses a string of the form <integer><unit> where unit is
// one of s, m, h, d (case-insensitive) into a time.Duration. Any other
// shape returns an error wrapping kuloerr.ErrInvalidDuration.
func ParseDuration(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	match := durationPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return 0, fmt.Errorf("%w: %q (expected <number><unit>, unit one of s/m/h/d)", kuloerr.ErrInvalidDuration, s)
	}

	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", kuloerr.ErrInvalidDuration, s)
	}

	unit := strings.ToLower(match[2])[0]
	mult, ok := timeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %q", kuloerr.ErrInvalidDuration, s)
	}

	return time.Duration(value) * mult, nil
}
