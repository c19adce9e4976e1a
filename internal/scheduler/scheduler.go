package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"FiscalSentinel/internal/analysis"
	"FiscalSentinel/internal/collector"
	"FiscalSentinel/internal/config"
	"FiscalSentinel/internal/dashboard"
	"FiscalSentinel/internal/fusion"
	"FiscalSentinel/internal/model"
	"FiscalSentinel/internal/provider"

	"github.com/robfig/cron/v3"
)

// refreshTimeout bounds one full refresh cycle.
const refreshTimeout = 2 * time.Minute

// Scheduler drives the periodic refresh cycles: a daily macro sweep that
// re-resolves slow-moving fiscal series and re-fuses composites, and a
// fast market sweep for live quotes. Both render a dashboard frame to Out.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Fusion    *fusion.Engine
	Cfg       *config.Config
	Macro     provider.SeriesProvider // FRED; nil when no API key
	Market    provider.SeriesProvider
	Out       io.Writer
	Ctx       context.Context
}

// NewScheduler creates a Scheduler over the assembled components.
func NewScheduler(ctx context.Context, col *collector.Collector, fus *fusion.Engine, cfg *config.Config, macro, market provider.SeriesProvider, out io.Writer) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Fusion:    fus,
		Cfg:       cfg,
		Macro:     macro,
		Market:    market,
		Out:       out,
		Ctx:       ctx,
	}
}

// RegisterAll registers the macro and market refresh tasks.
func (s *Scheduler) RegisterAll() error {
	if _, err := s.Cron.AddFunc(s.Cfg.Schedule.MacroCron, s.macroTask); err != nil {
		return fmt.Errorf("register macro task: %w", err)
	}
	if _, err := s.Cron.AddFunc(s.Cfg.Schedule.MarketCron, s.marketTask); err != nil {
		return fmt.Errorf("register market task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunMacroNow executes the macro sweep immediately (RUN_ON_START).
func (s *Scheduler) RunMacroNow() {
	s.macroTask()
}

// macroTask is the slow sweep: country snapshots, composite contributor
// refresh and re-fusion, regression projection, and a full frame render.
func (s *Scheduler) macroTask() {
	log.Println("[INFO] running macro refresh")
	ctx, cancel := context.WithTimeout(s.Ctx, refreshTimeout)
	defer cancel()

	snaps := s.collectAll(ctx)

	if s.Macro != nil {
		for _, comp := range s.Cfg.Composites {
			for _, err := range s.Collector.RefreshContributors(ctx, s.Macro, comp, s.Cfg.ChartPeriod) {
				log.Printf("[WARN] composite %s contributor: %v", comp.ID, err)
			}
		}
	}

	for _, snap := range snaps {
		fmt.Fprint(s.Out, dashboard.FormatCountryReport(s.country(snap.Country), snap, s.Cfg.Thresholds))
	}
	fmt.Fprint(s.Out, dashboard.FormatGlobalGrid(s.Cfg.Countries, snaps, s.Cfg.Thresholds))

	for _, comp := range s.Cfg.Composites {
		rec, err := s.fuseComposite(comp)
		if err != nil {
			log.Printf("[ERROR] fuse %s: %v", comp.ID, err)
			continue
		}
		fmt.Fprint(s.Out, dashboard.FormatLiquidity(rec))
	}

	for _, country := range s.Cfg.Countries {
		s.projectDayZero(ctx, country)
	}
}

// marketTask is the fast sweep: quotes only. Macro metrics still inside
// their window resolve from cache, so the whole snapshot is cheap.
func (s *Scheduler) marketTask() {
	log.Println("[INFO] running market refresh")
	ctx, cancel := context.WithTimeout(s.Ctx, refreshTimeout)
	defer cancel()

	for _, snap := range s.collectAll(ctx) {
		fmt.Fprint(s.Out, dashboard.FormatCountryReport(s.country(snap.Country), snap, s.Cfg.Thresholds))
	}

	for _, country := range s.Cfg.Countries {
		ticker, ok := country.Tickers[model.MetricYield10Y]
		if !ok || s.Market == nil {
			continue
		}
		rec, err := s.Collector.ChartSeries(ctx, s.Market, ticker, s.Cfg.ChartPeriod)
		if err != nil {
			log.Printf("[WARN] chart %s: %v", ticker, err)
		}
		if rec != nil {
			fmt.Fprint(s.Out, dashboard.FormatChart(country.Code+" 10Y history", rec))
		}
	}
}

func (s *Scheduler) collectAll(ctx context.Context) []*model.CountrySnapshot {
	snaps := make([]*model.CountrySnapshot, 0, len(s.Cfg.Countries))
	for _, country := range s.Cfg.Countries {
		snap := s.Collector.Snapshot(ctx, country)
		for _, e := range snap.Errors {
			log.Printf("[WARN] %s: %s", country.Code, e)
		}
		snaps = append(snaps, snap)
	}
	return snaps
}

// fuseComposite re-fuses one composite from its cached contributors.
func (s *Scheduler) fuseComposite(comp config.Composite) (*model.SeriesRecord, error) {
	ids := make([]string, len(comp.Contributors))
	coeffs := make([]float64, len(comp.Contributors))
	for i, c := range comp.Contributors {
		ids[i] = c.Series
		coeffs[i] = c.Coefficient
	}
	return s.Fusion.Fuse(comp.ID, comp.Reference, ids, fusion.LinearCombine(coeffs))
}

// projectDayZero fuses the interest/receipts ratio history for countries
// whose fiscal series come from FRED and renders the regression projection.
func (s *Scheduler) projectDayZero(ctx context.Context, country config.Country) {
	interestID := country.FredSeries[model.MetricInterestPayments]
	receiptsID := country.FredSeries[model.MetricTaxReceipts]
	if s.Macro == nil || interestID == "" || receiptsID == "" {
		return
	}

	for _, id := range []string{interestID, receiptsID} {
		if _, err := s.Collector.RefreshSeries(ctx, s.Macro, id, "10y"); err != nil {
			log.Printf("[WARN] %s fiscal history %s: %v", country.Code, id, err)
		}
	}

	ratioID := country.Code + ".interest_ratio"
	rec, err := s.Fusion.Fuse(ratioID, interestID, []string{interestID, receiptsID}, fusion.Ratio(0, 1))
	if err != nil {
		log.Printf("[ERROR] fuse %s: %v", ratioID, err)
		return
	}

	dz, err := analysis.ProjectDayZero(rec.Rows, time.Now())
	fmt.Fprint(s.Out, dashboard.FormatDayZero(dz, err))
}

func (s *Scheduler) country(code string) config.Country {
	for _, c := range s.Cfg.Countries {
		if c.Code == code {
			return c
		}
	}
	return config.Country{Code: code}
}
