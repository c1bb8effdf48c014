package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/analyzer"
	"IndexSentinel/internal/cache"
	"IndexSentinel/internal/collector"
	"IndexSentinel/internal/config"
	"IndexSentinel/internal/feed"
	"IndexSentinel/internal/notifier"
	"IndexSentinel/internal/recorder"
	"IndexSentinel/internal/scheduler"
	"IndexSentinel/internal/tracker"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.Info("IndexSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config validation")
	}
	if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "bridge":
		fetcher = collector.NewBridgeFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 23500, Seed: time.Now().UnixNano()}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.WithField("source", fetcher.Name()).Info("data source ready")

	// Init collector
	opts := collector.DefaultOptions()
	opts.Interval = cfg.DataSource.Interval
	opts.Bars = cfg.DataSource.Bars
	opts.RatePerSec = cfg.DataSource.RatePerSec
	opts.Burst = cfg.DataSource.Burst
	if !cfg.DataSource.Breadth {
		opts.Constituents = nil
	}
	col, err := collector.NewCollector(fetcher, opts, log)
	if err != nil {
		log.WithError(err).Fatal("init collector")
	}

	// Init cache and event fan-out
	hub := feed.NewHub(log)
	var store cache.Store = cache.NewMemory(time.Now)
	publishers := cache.Fanout{hub}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, log)
		if err := rc.HealthCheck(ctx); err != nil {
			log.WithError(err).Warn("redis unavailable, using in-memory cache")
			rc.Close()
		} else {
			store = rc
			publishers = append(publishers, rc)
			defer rc.Close()
		}
	}

	// Init signal tracker and analyzer
	if dir := filepath.Dir(cfg.Tracker.StatePath); cfg.Tracker.StatePath != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.WithError(err).Fatal("create state dir")
		}
	}
	tr, err := tracker.New(cfg.Tracker, log, time.Now)
	if err != nil {
		log.WithError(err).Fatal("init tracker")
	}
	an, err := analyzer.New(cfg.Analyzer, analyzer.Deps{Tracker: tr, Cache: store, Publisher: publishers, Logger: log})
	if err != nil {
		log.WithError(err).Fatal("init analyzer")
	}

	// Init notifier
	var note notifier.Notifier = notifier.LogNotifier{Logger: log}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		note = tn
	} else {
		log.Warn("telegram not configured, messages go to the log")
	}

	// Init recorder
	rec := openRecorder(ctx, cfg, log)
	defer rec.Close()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, an, note, rec, scheduler.Options{Indices: cfg.Indices}, log)
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.ResetCron, cfg.Schedule.ExpiryCron); err != nil {
		log.WithError(err).Fatal("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Dashboard feed
	var srv *http.Server
	if cfg.Feed.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		srv = &http.Server{Addr: cfg.Feed.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("feed server stopped")
			}
		}()
		log.WithField("addr", cfg.Feed.Addr).Info("feed server listening")
	}

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, refreshing now")
		go sched.RefreshNow()
	}

	log.Info("IndexSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("feed server shutdown")
		}
		done()
	}
	hub.Close()
	log.Info("IndexSentinel stopped")
}

// openRecorder prefers Postgres, then SQLite, and falls back to a no-op recorder.
func openRecorder(ctx context.Context, cfg *config.Config, log *logrus.Logger) recorder.Recorder {
	if cfg.Database.PostgresURL != "" {
		pg, err := recorder.NewPostgresRecorder(ctx, cfg.Database.PostgresURL, log)
		if err == nil {
			return pg
		}
		log.WithError(err).Warn("init postgres recorder failed")
	}
	if path := cfg.Database.SQLitePath; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.WithError(err).Warn("create database dir")
		}
		sr, err := recorder.NewSQLiteRecorder(path, log)
		if err == nil {
			return sr
		}
		log.WithError(err).Warn("init sqlite recorder failed, using noop")
	}
	return recorder.NewNoopRecorder()
}
