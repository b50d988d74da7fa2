package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"HeikinSentinel/internal/metrics"
	"HeikinSentinel/internal/scheduler"
)

func (a *app) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info().Msg("HeikinSentinel starting")

	store, err := a.newStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		a.logger.Error().Err(err).Msg("alert state unreadable, starting with no prior alerts")
	}

	rec := a.newRecorder()
	defer rec.Close()

	n, tn := a.newNotifier()
	tfs, err := a.cfg.Timeframes()
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.NewRegistry())
	health := metrics.NewHealth(3 * a.cfg.Scan.Interval)

	loop, err := scheduler.NewScanLoop(scheduler.ScanConfig{
		Universe:     a.newUniverse(),
		UniverseSize: a.cfg.Universe.Size,
		Timeframes:   tfs,
		Collector:    a.newCollector(),
		Strategy:     a.strategyParams(),
		Store:        store,
		Notifier:     n,
		Recorder:     rec,
		Metrics:      m,
		Health:       health,
		Interval:     a.cfg.Scan.Interval,
		Concurrency:  a.cfg.Scan.Concurrency,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(ctx, loop, store, n, rec, a.logger)
	if err := sched.RegisterAll(a.cfg.Schedule.DigestCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if a.cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(a.cfg.Metrics.Addr, m, health, a.logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				a.logger.Warn().Err(err).Msg("metrics server shutdown")
			}
		}()
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		a.logger.Info().Msg("telegram polling started")
	}

	if os.Getenv("DIGEST_ON_START") == "true" {
		go sched.SendDigest()
	}

	a.logger.Info().
		Strs("timeframes", a.cfg.Scan.Timeframes).
		Dur("interval", a.cfg.Scan.Interval).
		Int("concurrency", a.cfg.Scan.Concurrency).
		Msg("HeikinSentinel is running, press Ctrl+C to stop")

	err = loop.Run(ctx)
	a.logger.Info().Msg("HeikinSentinel stopped")
	return err
}
