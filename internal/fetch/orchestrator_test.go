package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"FiscalSentinel/internal/freshness"
	"FiscalSentinel/internal/model"
	"FiscalSentinel/internal/provider"
	"FiscalSentinel/internal/store"
)

func newTestOrchestrator() *Orchestrator {
	return New(store.NewMemoryStore(), freshness.Windows{
		freshness.CategoryMacro:  time.Hour,
		freshness.CategoryMarket: time.Minute,
	})
}

func scalarCall(v float64, err error) ScalarFunc {
	return func(context.Context) (float64, error) { return v, err }
}

func TestResolveCacheHitSuppressesRefetch(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	var calls int32
	call := func(context.Context) (float64, error) {
		atomic.AddInt32(&calls, 1)
		return 4.42, nil
	}

	v, ok, err := o.Resolve(ctx, "US.yield_10y", freshness.CategoryMarket, "yahoo", call)
	if err != nil || !ok || v != 4.42 {
		t.Fatalf("first resolve: %v %v %v", v, ok, err)
	}

	// Second call within the window: the provider must not run, even one
	// that would fail.
	boom := scalarCall(0, errors.New("provider exploded"))
	v, ok, err = o.Resolve(ctx, "US.yield_10y", freshness.CategoryMarket, "yahoo", boom)
	if err != nil {
		t.Fatalf("cache hit returned error: %v", err)
	}
	if !ok || v != 4.42 {
		t.Fatalf("cache hit: %v %v", v, ok)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("provider invoked %d times, want 1", n)
	}
}

func TestResolveStaleFallback(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	if _, _, err := o.Resolve(ctx, "US.gdp", freshness.CategoryMacro, "FRED", scalarCall(29184.9, nil)); err != nil {
		t.Fatal(err)
	}

	// Age the cache past the window, then fail the refresh.
	o.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	v, ok, err := o.Resolve(ctx, "US.gdp", freshness.CategoryMacro, "FRED", scalarCall(0, errors.New("timeout")))
	if !ok || v != 29184.9 {
		t.Fatalf("expected stale value served, got %v %v", v, ok)
	}
	if !errors.Is(err, ErrStaleDataServed) {
		t.Errorf("error should wrap ErrStaleDataServed: %v", err)
	}
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("error should wrap ErrProviderUnavailable: %v", err)
	}
}

func TestResolveNeverFetchedFailure(t *testing.T) {
	o := newTestOrchestrator()

	_, ok, err := o.Resolve(context.Background(), "US.gdp", freshness.CategoryMacro, "FRED",
		scalarCall(0, errors.New("connection refused")))
	if ok {
		t.Fatal("expected absence for a never-fetched key")
	}
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
	if errors.Is(err, ErrStaleDataServed) {
		t.Errorf("never-fetched failure must not claim stale data: %v", err)
	}
}

func TestResolveNoDataDoesNotOverwrite(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	if _, _, err := o.Resolve(ctx, "US.tax_receipts", freshness.CategoryMacro, "FRED", scalarCall(5230, nil)); err != nil {
		t.Fatal(err)
	}
	o.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	noData := scalarCall(0, fmt.Errorf("W006RC1Q027SBEA: %w", provider.ErrNoData))
	v, ok, err := o.Resolve(ctx, "US.tax_receipts", freshness.CategoryMacro, "FRED", noData)
	if !ok || v != 5230 {
		t.Fatalf("expected prior value, got %v %v", v, ok)
	}
	if !errors.Is(err, provider.ErrNoData) || !errors.Is(err, ErrStaleDataServed) {
		t.Errorf("error should carry NoData and StaleDataServed: %v", err)
	}
	if errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("no-data is not a transport failure: %v", err)
	}

	rec, _ := o.Store().GetMetric("US.tax_receipts")
	if rec.Value != 5230 {
		t.Errorf("failed refresh overwrote the cache: %v", rec.Value)
	}
}

func TestResolveContextTimeoutFallsBack(t *testing.T) {
	o := newTestOrchestrator()
	bg := context.Background()

	if _, _, err := o.Resolve(bg, "US.yield_10y", freshness.CategoryMarket, "yahoo", scalarCall(4.42, nil)); err != nil {
		t.Fatal(err)
	}
	o.now = func() time.Time { return time.Now().Add(time.Hour) }

	ctx, cancel := context.WithTimeout(bg, time.Millisecond)
	defer cancel()
	slow := func(ctx context.Context) (float64, error) {
		select {
		case <-time.After(time.Second):
			return 5.0, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	v, ok, err := o.Resolve(ctx, "US.yield_10y", freshness.CategoryMarket, "yahoo", slow)
	if !ok || v != 4.42 {
		t.Fatalf("timeout should serve stale value, got %v %v", v, ok)
	}
	if !errors.Is(err, ErrStaleDataServed) {
		t.Errorf("expected stale advisory, got %v", err)
	}
}

func TestResolveSerializesPerKey(t *testing.T) {
	o := newTestOrchestrator()

	var inFlight, maxInFlight, calls int32
	slow := func(context.Context) (float64, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return 1.0, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := o.Resolve(context.Background(), "US.gdp", freshness.CategoryMacro, "FRED", slow); !ok || err != nil {
				t.Errorf("resolve: %v %v", ok, err)
			}
		}()
	}
	wg.Wait()

	if m := atomic.LoadInt32(&maxInFlight); m != 1 {
		t.Errorf("observed %d concurrent provider calls for one key, want 1", m)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("provider invoked %d times for concurrent same-key resolution, want 1", n)
	}
}

func TestResolveSeriesNormalizesRows(t *testing.T) {
	o := newTestOrchestrator()
	d := func(n int) time.Time { return time.Date(2025, 1, 1+n, 0, 0, 0, 0, time.UTC) }

	rows := []model.Point{
		{Date: d(2), Value: 3},
		{Date: d(0), Value: 1},
		{Date: d(2), Value: 4}, // later write wins for the duplicate date
		{Date: d(1), Value: 2},
	}
	rec, err := o.ResolveSeries(context.Background(), "us-10y", freshness.CategoryMacro,
		func(context.Context) ([]model.Point, error) { return rows, nil })
	if err != nil {
		t.Fatalf("resolve series: %v", err)
	}
	if len(rec.Rows) != 3 {
		t.Fatalf("expected 3 de-duplicated rows, got %d", len(rec.Rows))
	}
	for i := 1; i < len(rec.Rows); i++ {
		if !rec.Rows[i-1].Date.Before(rec.Rows[i].Date) {
			t.Fatal("rows not strictly ascending")
		}
	}
	if rec.Rows[2].Value != 4 {
		t.Errorf("duplicate date kept %v, want last value 4", rec.Rows[2].Value)
	}
}

func TestResolveSeriesStaleFallback(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()
	rows := []model.Point{{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Value: 1}}

	if _, err := o.ResolveSeries(ctx, "WALCL", freshness.CategoryMacro,
		func(context.Context) ([]model.Point, error) { return rows, nil }); err != nil {
		t.Fatal(err)
	}
	o.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	rec, err := o.ResolveSeries(ctx, "WALCL", freshness.CategoryMacro,
		func(context.Context) ([]model.Point, error) { return nil, errors.New("503") })
	if rec == nil || len(rec.Rows) != 1 {
		t.Fatalf("expected stale rows served, got %+v", rec)
	}
	if !errors.Is(err, ErrStaleDataServed) {
		t.Errorf("expected stale advisory, got %v", err)
	}

	// Empty success is NoData, not an overwrite.
	rec, err = o.ResolveSeries(ctx, "WALCL", freshness.CategoryMacro,
		func(context.Context) ([]model.Point, error) { return nil, nil })
	if rec == nil || len(rec.Rows) != 1 {
		t.Fatalf("empty result must not clear the cache: %+v", rec)
	}
	if !errors.Is(err, provider.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}
