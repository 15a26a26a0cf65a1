package app

import (
	"fmt"
	"strings"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	"hwbot/internal/transport/telegram"
	logx "hwbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(sc.Driver)),
		Path:        strings.TrimSpace(sc.Path),
		URI:         strings.TrimSpace(sc.URI),
		Database:    strings.TrimSpace(sc.Database),
		BusyTimeout: busy,
		Key:         "chat:" + strings.TrimSpace(cfg.Telegram.ChatID),
	}, nil
}

func chatTarget(cfg *config.Config) (kit.ChatTarget, error) {
	id, username, err := config.ParseChatID(cfg.Telegram.ChatID)
	if err != nil {
		return kit.ChatTarget{}, err
	}
	return kit.ChatTarget{ChatID: id, Username: username, ThreadID: cfg.Telegram.ThreadID}, nil
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	timeout, err := config.ParseDurationOrDefault("telegram.send_timeout", cfg.Telegram.SendTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:       cfg.Telegram.Token,
		APIURL:      cfg.Telegram.APIURL,
		SendTimeout: timeout,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	target, err := chatTarget(cfg)
	if err != nil {
		return notifier.Config{}, err
	}
	base, err := config.ParseDurationOrDefault("notifier.retry_base", cfg.Notifier.RetryBase, 500*time.Millisecond)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationOrDefault("notifier.retry_max_delay", cfg.Notifier.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	sendTimeout, err := config.ParseDurationOrDefault("telegram.send_timeout", cfg.Telegram.SendTimeout, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	retries := cfg.Notifier.RetryMax
	switch {
	case retries < 0:
		retries = 0
	case retries == 0:
		retries = config.DefaultRetryMax
	}
	return notifier.Config{
		Target:        target,
		RatePerSec:    cfg.Notifier.RatePerSec,
		RetryMax:      retries,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
		SendTimeout:   sendTimeout,
	}, nil
}

func mapFetcherConfig(cfg *config.Config) (homework.FetcherConfig, error) {
	timeout, err := config.ParseDurationOrDefault("upstream.timeout", cfg.Upstream.Timeout, 10*time.Second)
	if err != nil {
		return homework.FetcherConfig{}, err
	}
	return homework.FetcherConfig{
		Endpoint: cfg.Upstream.Endpoint,
		Token:    cfg.Upstream.Token,
		Timeout:  timeout,
	}, nil
}

func mapPollerSettings(cfg *config.Config) (poller.Settings, error) {
	interval, err := config.ParseDuration("poller.interval", cfg.Poller.Interval)
	if err != nil {
		return poller.Settings{}, err
	}
	policy, err := poller.ParseErrorPolicy(cfg.Poller.ErrorPolicy)
	if err != nil {
		return poller.Settings{}, fmt.Errorf("poller.error_policy: %w", err)
	}
	window, err := poller.ParseWindowMode(cfg.Poller.Window)
	if err != nil {
		return poller.Settings{}, fmt.Errorf("poller.window: %w", err)
	}
	return poller.Settings{
		Interval:    interval,
		ErrorPolicy: policy,
		Window:      window,
		Language:    homework.ParseLanguage(cfg.Poller.Language),
	}, nil
}

// initialWindow is the first from_date: now minus upstream.lookback.
func initialWindow(cfg *config.Config, now time.Time) (int64, error) {
	lookback, err := config.ParseDuration("upstream.lookback", cfg.Upstream.Lookback)
	if err != nil {
		return 0, err
	}
	return now.Add(-lookback).Unix(), nil
}

// nowFunc is replaced in tests.
var nowFunc = time.Now
