package app

import (
	"context"
	"strings"

	"hwbot/internal/config"
	"hwbot/internal/eventbus"
	logx "hwbot/pkg/logx"
)

// startReload applies hot-reloaded configs. Only logging, poller and notifier
// settings change live; credentials and everything else keep their startup values.
func (a *App) startReload() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				if newCfg == nil {
					continue
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)

	if credentialsChanged(a.boot, newCfg) {
		a.log.Warn("credentials changed in config; restart required for them to take effect")
	}

	var restart []string
	for _, s := range sections {
		if !config.LiveSections[s] {
			restart = append(restart, s)
			continue
		}
		switch s {
		case "logging":
			a.logs.Apply(mapLogConfig(newCfg))
		case "poller":
			settings, err := mapPollerSettings(newCfg)
			if err != nil {
				a.log.Warn("poller settings rejected", logx.Err(err))
				continue
			}
			a.loop.Apply(settings)
		case "notifier":
			// The chat target stays the one from startup.
			ncfg, err := mapNotifierConfig(withCredentials(newCfg, a.boot))
			if err != nil {
				a.log.Warn("notifier settings rejected", logx.Err(err))
				continue
			}
			a.notif.Apply(ncfg)
		}
	}
	if len(restart) > 0 {
		a.log.Warn("config sections changed; restart required for changes to take effect",
			logx.String("sections", strings.Join(restart, ",")))
	}
	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Data: sections})
}

func credentialsChanged(oldCfg, newCfg *config.Config) bool {
	return oldCfg.Upstream.Token != newCfg.Upstream.Token ||
		oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		oldCfg.Telegram.ChatID != newCfg.Telegram.ChatID ||
		oldCfg.Telegram.ThreadID != newCfg.Telegram.ThreadID
}

// withCredentials returns a copy of cfg carrying the credentials of from.
func withCredentials(cfg, from *config.Config) *config.Config {
	cp := *cfg
	cp.Upstream.Token = from.Upstream.Token
	cp.Telegram.Token = from.Telegram.Token
	cp.Telegram.ChatID = from.Telegram.ChatID
	cp.Telegram.ThreadID = from.Telegram.ThreadID
	return &cp
}
