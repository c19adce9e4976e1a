package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"FiscalSentinel/internal/freshness"
)

// factTimestampKey is the reserved field carrying the manual update stamp.
const factTimestampKey = "last_updated"

// FactFile serves manually curated fiscal facts from a flat JSON file.
// It is a zero-latency, always-available scalar provider; its freshness is
// governed by the file's own last_updated stamp, not by fetch time.
type FactFile struct {
	path string

	mu          sync.RWMutex
	values      map[string]float64
	lastUpdated time.Time
	fieldErrs   []error
}

// LoadFactFile reads and parses the fact file. Unreadable fields degrade to
// absence and are reported via FieldErrors; only a missing or wholly
// unparsable file returns an error.
func LoadFactFile(path string) (*FactFile, error) {
	f := &FactFile{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload re-reads the fact file, picking up manual edits.
func (f *FactFile) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read fact file %s: %w", f.path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse fact file %s: %w: %v", f.path, ErrMalformedLocalFact, err)
	}

	values := make(map[string]float64, len(raw))
	var lastUpdated time.Time
	var fieldErrs []error

	for key, msg := range raw {
		if key == factTimestampKey {
			var stamp string
			if err := json.Unmarshal(msg, &stamp); err != nil {
				fieldErrs = append(fieldErrs, fmt.Errorf("%s: %w", key, ErrMalformedLocalFact))
				continue
			}
			if t, ok := freshness.ParseTimestamp(stamp); ok {
				lastUpdated = t
			} else {
				fieldErrs = append(fieldErrs, fmt.Errorf("%s: %w", key, ErrMalformedLocalFact))
			}
			continue
		}
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			fieldErrs = append(fieldErrs, fmt.Errorf("%s: %w", key, ErrMalformedLocalFact))
			continue
		}
		values[key] = v
	}

	f.mu.Lock()
	f.values = values
	f.lastUpdated = lastUpdated
	f.fieldErrs = fieldErrs
	f.mu.Unlock()

	if len(fieldErrs) > 0 {
		log.Printf("[WARN] fact file %s: %d unreadable field(s) skipped", f.path, len(fieldErrs))
	}
	return nil
}

func (f *FactFile) Name() string { return "local" }

// FetchScalar returns the fact value for key.
func (f *FactFile) FetchScalar(_ context.Context, key string) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.values[key]
	if !ok {
		return 0, fmt.Errorf("fact %s: %w", key, ErrNoData)
	}
	return v, nil
}

// LastUpdated returns the manual update stamp, zero if missing or unreadable.
func (f *FactFile) LastUpdated() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastUpdated
}

// FieldErrors returns the per-field parse failures from the last load.
func (f *FactFile) FieldErrors() []error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]error(nil), f.fieldErrs...)
}
