package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"FiscalSentinel/internal/freshness"
	"FiscalSentinel/internal/model"
	"FiscalSentinel/internal/provider"
	"FiscalSentinel/internal/store"

	"golang.org/x/sync/singleflight"
)

// Orchestrator failure vocabulary, layered on top of the provider's.
var (
	// ErrProviderUnavailable marks a transport or auth failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrStaleDataServed is advisory: a cached value was returned after a
	// failed refresh attempt.
	ErrStaleDataServed = errors.New("stale data served")
)

// ScalarFunc fetches the authoritative value for one key.
type ScalarFunc func(ctx context.Context) (float64, error)

// SeriesFunc fetches the authoritative rows for one series id.
type SeriesFunc func(ctx context.Context) ([]model.Point, error)

// Orchestrator serves cached values while they are fresh, refreshes them
// through provider calls when they are not, and falls back to stale cache
// entries when a refresh fails. Provider failures never escape as fatal
// errors; only storage-layer failures do.
type Orchestrator struct {
	store   store.Store
	windows freshness.Windows

	// one in-flight provider call per key
	flights singleflight.Group

	now func() time.Time
}

// New creates an Orchestrator over the given store and freshness windows.
func New(st store.Store, w freshness.Windows) *Orchestrator {
	return &Orchestrator{store: st, windows: w, now: time.Now}
}

type scalarResult struct {
	value float64
	ok    bool
	err   error
}

// Resolve returns the value for key. A fresh cached value is returned as-is
// with no provider call. On a miss or stale entry the provider is invoked;
// on success the value is written through, on failure the stale value (if
// any) is served with an advisory error wrapping ErrStaleDataServed, or
// absence (ok=false) is reported together with the failure.
func (o *Orchestrator) Resolve(ctx context.Context, key, category, source string, call ScalarFunc) (float64, bool, error) {
	maxAge := o.windows.MaxAge(category)

	rec, err := o.store.GetMetric(key)
	if err != nil {
		return 0, false, err // storage failure is fatal to the call
	}
	if rec != nil && freshness.IsFreshAt(o.now(), rec.Timestamp, maxAge) {
		return rec.Value, true, nil
	}

	v, _, _ := o.flights.Do(key, func() (interface{}, error) {
		return o.refreshScalar(ctx, key, maxAge, source, call), nil
	})
	r := v.(scalarResult)
	return r.value, r.ok, r.err
}

func (o *Orchestrator) refreshScalar(ctx context.Context, key string, maxAge time.Duration, source string, call ScalarFunc) scalarResult {
	// Re-check inside the flight: another caller may have refreshed the key
	// between our freshness check and acquiring the flight.
	if rec, err := o.store.GetMetric(key); err == nil && rec != nil &&
		freshness.IsFreshAt(o.now(), rec.Timestamp, maxAge) {
		return scalarResult{value: rec.Value, ok: true}
	}

	value, err := call(ctx)
	if err == nil {
		if werr := o.store.PutMetric(key, value, source); werr != nil {
			return scalarResult{err: werr}
		}
		return scalarResult{value: value, ok: true}
	}
	err = classify(err)

	// Do not overwrite the cache on failure; serve the last known value.
	rec, gerr := o.store.GetMetric(key)
	if gerr == nil && rec != nil {
		log.Printf("[WARN] refresh %s failed, serving value from %s: %v",
			key, rec.Timestamp.Format(time.RFC3339), err)
		return scalarResult{
			value: rec.Value,
			ok:    true,
			err:   fmt.Errorf("%s: %w: %w", key, ErrStaleDataServed, err),
		}
	}
	return scalarResult{err: fmt.Errorf("%s: %w", key, err)}
}

type seriesResult struct {
	rec *model.SeriesRecord
	err error
}

// ResolveSeries is Resolve for full time series. Rows returned by the
// provider are sorted and de-duplicated before the write-through, keeping
// the store's ordering precondition at this boundary.
func (o *Orchestrator) ResolveSeries(ctx context.Context, id, category string, call SeriesFunc) (*model.SeriesRecord, error) {
	maxAge := o.windows.MaxAge(category)

	rec, err := o.store.GetSeries(id)
	if err != nil {
		return nil, err
	}
	if rec != nil && freshness.IsFreshAt(o.now(), rec.LastRefreshed, maxAge) {
		return rec, nil
	}

	v, _, _ := o.flights.Do("series:"+id, func() (interface{}, error) {
		return o.refreshSeries(ctx, id, maxAge, call), nil
	})
	r := v.(seriesResult)
	return r.rec, r.err
}

func (o *Orchestrator) refreshSeries(ctx context.Context, id string, maxAge time.Duration, call SeriesFunc) seriesResult {
	if rec, err := o.store.GetSeries(id); err == nil && rec != nil &&
		freshness.IsFreshAt(o.now(), rec.LastRefreshed, maxAge) {
		return seriesResult{rec: rec}
	}

	rows, err := call(ctx)
	if err == nil && len(rows) == 0 {
		err = fmt.Errorf("%s: %w", id, provider.ErrNoData)
	}
	if err == nil {
		rows = NormalizeRows(rows)
		if werr := o.store.PutSeries(id, rows); werr != nil {
			return seriesResult{err: werr}
		}
		rec, gerr := o.store.GetSeries(id)
		if gerr != nil {
			return seriesResult{err: gerr}
		}
		return seriesResult{rec: rec}
	}
	err = classify(err)

	rec, gerr := o.store.GetSeries(id)
	if gerr == nil && rec != nil {
		log.Printf("[WARN] refresh series %s failed, serving %d stale rows: %v", id, len(rec.Rows), err)
		return seriesResult{
			rec: rec,
			err: fmt.Errorf("%s: %w: %w", id, ErrStaleDataServed, err),
		}
	}
	return seriesResult{err: fmt.Errorf("%s: %w", id, err)}
}

// Store exposes the underlying store for read-only consumers (fusion,
// chart rendering).
func (o *Orchestrator) Store() store.Store { return o.store }

// Windows exposes the freshness configuration.
func (o *Orchestrator) Windows() freshness.Windows { return o.windows }

// classify tags transport-level failures as ErrProviderUnavailable.
// Structural provider outcomes (no data) pass through untouched.
func classify(err error) error {
	if errors.Is(err, provider.ErrNoData) || errors.Is(err, provider.ErrMalformedLocalFact) {
		return err
	}
	if errors.Is(err, ErrProviderUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

// NormalizeRows sorts rows ascending by date and keeps the last value seen
// for each date, satisfying the series store's precondition.
func NormalizeRows(rows []model.Point) []model.Point {
	if len(rows) == 0 {
		return rows
	}
	sorted := append([]model.Point(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := sorted[:0]
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
