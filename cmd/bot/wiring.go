package main

import (
	"fmt"
	"time"

	"HeikinSentinel/internal/alertstate"
	"HeikinSentinel/internal/calculator"
	"HeikinSentinel/internal/collector"
	"HeikinSentinel/internal/notifier"
	"HeikinSentinel/internal/recorder"
	"HeikinSentinel/internal/strategy"
)

func (a *app) indicatorParams() calculator.Params {
	p := calculator.DefaultParams()
	p.TrendEMA = a.cfg.Strategy.EMAPeriod
	p.BBPeriod = a.cfg.Strategy.BBPeriod
	return p
}

func (a *app) strategyParams() strategy.Params {
	return strategy.Params{
		Thresholds: append([]float64(nil), a.cfg.Strategy.Thresholds...),
		Tolerance:  a.cfg.Strategy.Tolerance,
	}
}

func (a *app) newSource() collector.CandleSource {
	if a.cfg.Exchange.Source == "mock" {
		return collector.NewMockSource(100)
	}
	return collector.NewKuCoinSource(a.cfg.Exchange.BaseURL, a.cfg.Proxy)
}

func (a *app) newCollector() *collector.Collector {
	src := a.newSource()
	a.logger.Info().Str("source", src.Name()).Msg("candle source ready")
	return collector.NewCollector(collector.Config{
		Source:  src,
		Params:  a.indicatorParams(),
		Margin:  a.cfg.Scan.Margin,
		Retries: a.cfg.Scan.FetchRetries,
		Logger:  a.logger,
	})
}

func (a *app) newUniverse() collector.SymbolUniverse {
	if len(a.cfg.Universe.Symbols) > 0 {
		return collector.StaticUniverse(a.cfg.Universe.Symbols)
	}
	return collector.NewCoinGeckoUniverse(a.cfg.Universe.BaseURL, a.cfg.Proxy)
}

func (a *app) newStore() (alertstate.Store, error) {
	if a.cfg.State.Backend == "redis" {
		s, err := alertstate.NewRedisStore(alertstate.RedisConfig{
			Addr:     a.cfg.State.RedisAddr,
			Password: a.cfg.State.RedisPassword,
			DB:       a.cfg.State.RedisDB,
			Key:      a.cfg.State.RedisKey,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init redis alert state: %w", err)
		}
		return s, nil
	}
	return alertstate.NewFileStore(a.cfg.State.File, a.logger), nil
}

func (a *app) newNotifier() (notifier.Notifier, *notifier.TelegramNotifier) {
	if !a.cfg.Telegram.Enabled() {
		a.logger.Warn().Msg("telegram not configured, alerts go to the log")
		return notifier.NewLogNotifier(a.logger), nil
	}
	tn := notifier.NewTelegramNotifier(notifier.TelegramConfig{
		BotToken: a.cfg.Telegram.BotToken,
		ChatIDs:  a.cfg.Telegram.ChatIDs,
		BaseURL:  a.cfg.Telegram.BaseURL,
		Proxy:    a.cfg.Proxy,
		Retries:  a.cfg.Telegram.Retries,
		Backoff:  time.Second,
	}, a.logger)
	return tn, tn
}

func (a *app) newRecorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	r, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return r
}
