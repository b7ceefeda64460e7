package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FundLens/internal/collector"
	"FundLens/internal/config"
	"FundLens/internal/metrics"
	"FundLens/internal/notifier"
	"FundLens/internal/pipeline"
	"FundLens/internal/recorder"
	"FundLens/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] FundLens starting...")

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

	// Init source
	var source collector.Source
	switch cfg.DataSource.Kind {
	case "http":
		source = collector.NewHTTPSource(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		source = &collector.MockSource{BasePrice: 100, Days: 300}
	default:
		source = collector.NewYahooSource(cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s", source.Name())
	col := collector.NewCollector(source, cfg.CollectorOptions())

	// Init recorder
	var rec recorder.Recorder
	var history scheduler.History
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			history = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	m := metrics.NewMetrics()
	p := pipeline.New(col, cfg.FundTable(), rec, m, pipeline.Options{
		Tickers:     cfg.Tickers,
		FocusTicker: cfg.FocusTicker,
		Lookback:    cfg.LookbackPeriod(),
		Files:       cfg.OutputFiles(),
	})

	var tn *notifier.TelegramNotifier
	var rep scheduler.Reporter
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		rep = tn
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// One-shot mode
	if cfg.Schedule.Cron == "" {
		go func() {
			<-sigCh
			log.Println("[INFO] shutdown signal received, aborting run...")
			cancel()
		}()
		sched := scheduler.NewScheduler(ctx, p, rep)
		sched.RunNow()
		if sched.LastError() != nil {
			rec.Close()
			os.Exit(1)
		}
		return
	}

	if cfg.Metrics.Addr != "" {
		srv := m.Serve(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
	}

	sched := scheduler.NewScheduler(ctx, p, rep)
	sched.History = history
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing run now")
		go sched.RunNow()
	}

	log.Printf("[INFO] FundLens is running on schedule %q. Press Ctrl+C to stop.", cfg.Schedule.Cron)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] FundLens stopped")
}
