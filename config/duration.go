package config

import (
	"strconv"
	"strings"
)

// ParseDuration parses an integer followed by an optional unit suffix
// (ms|s|m|min|h) into a millisecond count. An unrecognized or malformed
// value falls back silently to def, per the "defaults are all safe"
// error-handling contract: a misconfigured duration must never abort
// startup.
func ParseDuration(raw string, def int64) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	suffix, multiplier := splitSuffix(raw)
	numPart := strings.TrimSuffix(raw, suffix)
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n * multiplier
}

// splitSuffix finds the longest recognized duration suffix at the end of
// raw and returns it along with its millisecond multiplier. "min" is
// checked before "m" so the three-letter form isn't truncated.
func splitSuffix(raw string) (suffix string, multiplier int64) {
	switch {
	case strings.HasSuffix(raw, "min"):
		return "min", 60000
	case strings.HasSuffix(raw, "ms"):
		return "ms", 1
	case strings.HasSuffix(raw, "s"):
		return "s", 1000
	case strings.HasSuffix(raw, "m"):
		return "m", 60000
	case strings.HasSuffix(raw, "h"):
		return "h", 3600000
	default:
		return "", 1
	}
}

// FormatDuration is the inverse of ParseDuration for the canonical set of
// units it round-trips through (ms, s, m, h); it always emits milliseconds
// with an explicit "ms" suffix, which every caller of ParseDuration accepts.
func FormatDuration(ms int64) string {
	return strconv.FormatInt(ms, 10) + "ms"
}
