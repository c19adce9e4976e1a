package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FiscalSentinel/internal/collector"
	"FiscalSentinel/internal/config"
	"FiscalSentinel/internal/fetch"
	"FiscalSentinel/internal/freshness"
	"FiscalSentinel/internal/fusion"
	"FiscalSentinel/internal/provider"
	"FiscalSentinel/internal/scheduler"
	"FiscalSentinel/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] FiscalSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init store; fall back to in-memory if SQLite cannot open so the
	// dashboard still runs, just without persistence.
	var st store.Store
	if sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath); err != nil {
		log.Printf("[WARN] open sqlite store failed, using in-memory: %v", err)
		st = store.NewMemoryStore()
	} else {
		st = sq
	}
	defer st.Close()

	// Freshness windows; zero config values keep the defaults.
	windows := freshness.DefaultWindows()
	if cfg.Freshness.MacroMaxAge > 0 {
		windows[freshness.CategoryMacro] = time.Duration(cfg.Freshness.MacroMaxAge)
	}
	if cfg.Freshness.MarketMaxAge > 0 {
		windows[freshness.CategoryMarket] = time.Duration(cfg.Freshness.MarketMaxAge)
	}
	if cfg.Freshness.LocalMaxAge > 0 {
		windows[freshness.CategoryLocal] = time.Duration(cfg.Freshness.LocalMaxAge)
	}

	orch := fetch.New(st, windows)
	fus := fusion.NewEngine(st, windows)

	// Providers. A missing FRED key degrades macro metrics to advisory
	// errors instead of refusing to start.
	var fred *provider.FredClient
	if cfg.Fred.APIKey != "" {
		fred = provider.NewFredClient(cfg.Fred.APIKey, cfg.Fred.BaseURL, cfg.Proxy)
	} else {
		log.Println("[WARN] no FRED API key configured, macro metrics unavailable")
	}
	yahoo := provider.NewYahooClient(cfg.Proxy)

	var facts *provider.FactFile
	if cfg.Facts.Path != "" {
		if f, err := provider.LoadFactFile(cfg.Facts.Path); err != nil {
			log.Printf("[WARN] load fact file %s: %v", cfg.Facts.Path, err)
		} else {
			facts = f
		}
	}

	var macroScalar provider.ScalarProvider
	var macroSeries provider.SeriesProvider
	if fred != nil {
		macroScalar, macroSeries = fred, fred
	}
	col := collector.NewCollector(orch, macroScalar, yahoo, facts)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, col, fus, cfg, macroSeries, yahoo, os.Stdout)
	if err := sched.RegisterAll(); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing macro refresh now")
		go sched.RunMacroNow()
	}

	log.Println("[INFO] FiscalSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] FiscalSentinel stopped")
}
