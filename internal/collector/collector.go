package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"FiscalSentinel/internal/config"
	"FiscalSentinel/internal/fetch"
	"FiscalSentinel/internal/freshness"
	"FiscalSentinel/internal/model"
	"FiscalSentinel/internal/provider"

	"golang.org/x/sync/errgroup"
)

// resolveConcurrency caps parallel provider calls per snapshot.
const resolveConcurrency = 4

// Collector assembles country snapshots by resolving every configured
// metric through the fetch orchestrator. Providers may be nil when not
// configured; affected metrics degrade to absence with an advisory error.
type Collector struct {
	Orch   *fetch.Orchestrator
	Macro  provider.ScalarProvider // FRED; nil when no API key
	Market provider.ScalarProvider
	Facts  *provider.FactFile // nil when no fact file
}

// NewCollector creates a Collector over the given orchestrator and providers.
func NewCollector(orch *fetch.Orchestrator, macro, market provider.ScalarProvider, facts *provider.FactFile) *Collector {
	return &Collector{Orch: orch, Macro: macro, Market: market, Facts: facts}
}

// Snapshot resolves all metrics configured for the country. Metrics resolve
// concurrently and independently: one failing key never aborts the batch.
// Failures surface as advisory errors on the snapshot, never as a fatal
// return.
func (c *Collector) Snapshot(ctx context.Context, country config.Country) *model.CountrySnapshot {
	snap := model.NewCountrySnapshot(country.Code, country.Currency)
	snap.FetchedAt = time.Now()

	var mu sync.Mutex
	record := func(name string, value float64, ok bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			snap.Metrics[name] = value
		}
		if err != nil {
			snap.Errors = append(snap.Errors, err.Error())
			if ok && errors.Is(err, fetch.ErrStaleDataServed) {
				snap.Stale[name] = true
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	for name, seriesID := range country.FredSeries {
		if c.Macro == nil {
			record(name, 0, false, fmt.Errorf("%s.%s: macro provider not configured", country.Code, name))
			continue
		}
		name, seriesID := name, seriesID
		g.Go(func() error {
			key := country.Code + "." + name
			v, ok, err := c.Orch.Resolve(gctx, key, freshness.CategoryMacro, c.Macro.Name(),
				func(ctx context.Context) (float64, error) {
					return c.Macro.FetchScalar(ctx, seriesID)
				})
			record(name, v, ok, err)
			return nil
		})
	}

	for name, ticker := range country.Tickers {
		if c.Market == nil {
			record(name, 0, false, fmt.Errorf("%s.%s: market provider not configured", country.Code, name))
			continue
		}
		name, ticker := name, ticker
		g.Go(func() error {
			key := country.Code + "." + name
			v, ok, err := c.Orch.Resolve(gctx, key, freshness.CategoryMarket, c.Market.Name(),
				func(ctx context.Context) (float64, error) {
					return c.Market.FetchScalar(ctx, ticker)
				})
			record(name, v, ok, err)
			return nil
		})
	}

	for name, factKey := range country.FactKeys {
		if c.Facts == nil {
			record(name, 0, false, fmt.Errorf("%s.%s: fact file not configured", country.Code, name))
			continue
		}
		name, factKey := name, factKey
		g.Go(func() error {
			key := country.Code + "." + name
			v, ok, err := c.Orch.Resolve(gctx, key, freshness.CategoryLocal, c.Facts.Name(),
				func(ctx context.Context) (float64, error) {
					return c.Facts.FetchScalar(ctx, factKey)
				})
			record(name, v, ok, err)
			return nil
		})
	}

	g.Wait() // workers never return errors; failures are advisory

	c.annotateFactStaleness(country, snap)
	return snap
}

// annotateFactStaleness flags fact-sourced metrics whose file stamp is
// older than the local freshness window. Fact freshness is governed by the
// file's own last_updated, not by when it was read.
func (c *Collector) annotateFactStaleness(country config.Country, snap *model.CountrySnapshot) {
	if c.Facts == nil || len(country.FactKeys) == 0 {
		return
	}
	maxAge := c.Orch.Windows().MaxAge(freshness.CategoryLocal)
	stamp := c.Facts.LastUpdated()
	if freshness.IsFresh(stamp, maxAge) {
		return
	}

	for name := range country.FactKeys {
		if _, ok := snap.Metrics[name]; ok {
			snap.Stale[name] = true
		}
	}
	if stamp.IsZero() {
		snap.Errors = append(snap.Errors, fmt.Sprintf("%s: fact file has no usable last_updated stamp", country.Code))
	} else {
		snap.Errors = append(snap.Errors, fmt.Sprintf("%s: fact file last updated %s, past the %s window",
			country.Code, stamp.Format("2006-01-02"), maxAge))
	}
}

// ChartSeries resolves a market price history for charting.
func (c *Collector) ChartSeries(ctx context.Context, prov provider.SeriesProvider, ticker, period string) (*model.SeriesRecord, error) {
	return c.Orch.ResolveSeries(ctx, "chart."+ticker, freshness.CategoryMacro,
		func(ctx context.Context) ([]model.Point, error) {
			return prov.FetchSeries(ctx, ticker, period)
		})
}

// RefreshSeries resolves one series under its provider id, populating the
// store for downstream fusion.
func (c *Collector) RefreshSeries(ctx context.Context, prov provider.SeriesProvider, id, period string) (*model.SeriesRecord, error) {
	return c.Orch.ResolveSeries(ctx, id, freshness.CategoryMacro,
		func(ctx context.Context) ([]model.Point, error) {
			return prov.FetchSeries(ctx, id, period)
		})
}

// RefreshContributors resolves the composite's contributing series so the
// fusion engine can run against a populated store.
func (c *Collector) RefreshContributors(ctx context.Context, prov provider.SeriesProvider, comp config.Composite, period string) []error {
	var errs []error
	for _, contrib := range comp.Contributors {
		_, err := c.RefreshSeries(ctx, prov, contrib.Series, period)
		if err != nil {
			log.Printf("[WARN] refresh contributor %s: %v", contrib.Series, err)
			errs = append(errs, err)
		}
	}
	return errs
}
