package freshness

import (
	"testing"
	"time"
)

func TestIsFreshAt_Boundaries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := time.Hour

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"just stamped", now, true},
		{"within window", now.Add(-30 * time.Minute), true},
		{"exactly at window", now.Add(-time.Hour), false},
		{"past window", now.Add(-2 * time.Hour), false},
		{"zero timestamp", time.Time{}, false},
	}
	for _, tt := range tests {
		if got := IsFreshAt(now, tt.ts, window); got != tt.want {
			t.Errorf("%s: IsFreshAt = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsFreshAt_Monotonic(t *testing.T) {
	// If fresh at age t, it must be fresh at any smaller age.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour
	for age := 23 * time.Hour; age > 0; age -= time.Hour {
		if !IsFreshAt(now, now.Add(-age), window) {
			t.Fatalf("fresh at 23h but stale at %v", age)
		}
	}
}

func TestIsFreshAt_NonPositiveWindow(t *testing.T) {
	now := time.Now()
	if IsFreshAt(now, now, 0) {
		t.Error("zero window should always be stale")
	}
	if IsFreshAt(now, now, -time.Minute) {
		t.Error("negative window should always be stale")
	}
}

func TestWindowsMaxAge(t *testing.T) {
	w := DefaultWindows()
	if got := w.MaxAge(CategoryMarket); got != DefaultMarketMaxAge {
		t.Errorf("market window = %v, want %v", got, DefaultMarketMaxAge)
	}
	if got := w.MaxAge("unknown-category"); got != DefaultMacroMaxAge {
		t.Errorf("unknown category should fall back to macro window, got %v", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2025-05-01T10:00:00Z", true},
		{"2025-05-01", true},
		{"1748772000", true},
		{"", false},
		{"not-a-time", false},
	}
	for _, tt := range tests {
		if _, ok := ParseTimestamp(tt.in); ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
	}
}
