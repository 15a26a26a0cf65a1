package app

import (
	"context"
	"fmt"

	"hwbot/internal/config"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	kit "hwbot/internal/transport"
	"hwbot/internal/transport/telegram"
	logx "hwbot/pkg/logx"
)

// CheckReport is the outcome of Check.
type CheckReport struct {
	Bot   kit.BotIdentity
	Items int
}

// Check verifies that both remote APIs accept the configured credentials.
// It performs one getMe call and one status fetch and sends nothing.
func Check(ctx context.Context, cfg *config.Config, log logx.Logger) (CheckReport, error) {
	var rep CheckReport
	if err := config.CheckCredentials(cfg); err != nil {
		return rep, err
	}
	if _, err := chatTarget(cfg); err != nil {
		return rep, err
	}

	tcfg, err := mapTelegramConfig(cfg)
	if err != nil {
		return rep, err
	}
	ad, err := telegram.New(tcfg, log)
	if err != nil {
		return rep, err
	}
	if rep.Bot, err = ad.Probe(ctx); err != nil {
		return rep, fmt.Errorf("telegram: %w", err)
	}

	fcfg, err := mapFetcherConfig(cfg)
	if err != nil {
		return rep, err
	}
	f, err := homework.NewFetcher(fcfg)
	if err != nil {
		return rep, err
	}
	from, err := initialWindow(cfg, nowFunc())
	if err != nil {
		return rep, err
	}
	raw, err := f.Fetch(ctx, from)
	if err != nil {
		return rep, fmt.Errorf("upstream: %w", err)
	}
	items, err := homework.ValidateResponse(raw)
	if err != nil {
		return rep, fmt.Errorf("upstream: %w", err)
	}
	rep.Items = len(items)
	return rep, nil
}

// SendTest delivers text through the same notifier the poll loop uses.
func SendTest(ctx context.Context, cfg *config.Config, log logx.Logger, text string) error {
	if err := config.CheckCredentials(cfg); err != nil {
		return err
	}
	tcfg, err := mapTelegramConfig(cfg)
	if err != nil {
		return err
	}
	ad, err := telegram.New(tcfg, log)
	if err != nil {
		return err
	}
	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return err
	}
	return notifier.New(ncfg, ad, log, nil).Notify(ctx, text)
}
