package freshness

import (
	"strconv"
	"time"
)

// Data categories with standing freshness windows.
const (
	CategoryMacro  = "macro-quarterly" // slow-moving fiscal facts (FRED releases)
	CategoryMarket = "market-intraday" // live quotes (yields, FX)
	CategoryLocal  = "local-fact"      // manually curated fact files
)

// Default maximum ages per category.
const (
	DefaultMacroMaxAge  = 24 * time.Hour
	DefaultMarketMaxAge = 10 * time.Minute
	DefaultLocalMaxAge  = 45 * 24 * time.Hour
)

// Windows maps a data category to the maximum age after which a cached
// value must be re-fetched. Built once at startup, never mutated.
type Windows map[string]time.Duration

// DefaultWindows returns the standing category windows.
func DefaultWindows() Windows {
	return Windows{
		CategoryMacro:  DefaultMacroMaxAge,
		CategoryMarket: DefaultMarketMaxAge,
		CategoryLocal:  DefaultLocalMaxAge,
	}
}

// MaxAge returns the window for category. Unknown categories fall back to
// the macro window, the most conservative standing one.
func (w Windows) MaxAge(category string) time.Duration {
	if d, ok := w[category]; ok && d > 0 {
		return d
	}
	return DefaultMacroMaxAge
}

// IsFreshAt reports whether a value stamped at ts is still usable at now.
// Zero timestamps and non-positive windows are always stale.
func IsFreshAt(now, ts time.Time, maxAge time.Duration) bool {
	if ts.IsZero() || maxAge <= 0 {
		return false
	}
	return now.Sub(ts) < maxAge
}

// IsFresh is IsFreshAt against the wall clock.
func IsFresh(ts time.Time, maxAge time.Duration) bool {
	return IsFreshAt(time.Now(), ts, maxAge)
}

// ParseTimestamp tries RFC3339, a bare date, and unix seconds.
// Callers treat a false result as stale.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}
