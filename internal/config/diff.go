package config

import (
	"strings"

	logx "hwbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging. Secrets (tokens, chat id, mongo uri) are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)
	same := func(a, b string) bool { return strings.TrimSpace(a) == strings.TrimSpace(b) }

	if !same(oldCfg.Upstream.Endpoint, newCfg.Upstream.Endpoint) ||
		!same(oldCfg.Upstream.Timeout, newCfg.Upstream.Timeout) ||
		!same(oldCfg.Upstream.Lookback, newCfg.Upstream.Lookback) {
		changed = append(changed, "upstream")
		attrs = append(attrs,
			logx.String("upstream.endpoint", newCfg.Upstream.Endpoint),
			logx.String("upstream.timeout", newCfg.Upstream.Timeout),
		)
	}

	if !same(oldCfg.Telegram.APIURL, newCfg.Telegram.APIURL) ||
		!same(oldCfg.Telegram.SendTimeout, newCfg.Telegram.SendTimeout) ||
		oldCfg.Telegram.ThreadID != newCfg.Telegram.ThreadID {
		changed = append(changed, "telegram")
		attrs = append(attrs, logx.String("telegram.send_timeout", newCfg.Telegram.SendTimeout))
	}

	if oldCfg.Poller != newCfg.Poller {
		changed = append(changed, "poller")
		attrs = append(attrs,
			logx.String("poller.interval", newCfg.Poller.Interval),
			logx.String("poller.error_policy", newCfg.Poller.ErrorPolicy),
			logx.String("poller.window", newCfg.Poller.Window),
			logx.String("poller.language", newCfg.Poller.Language),
		)
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.Int("notifier.retry_max", newCfg.Notifier.RetryMax),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !same(oldCfg.Storage.Driver, newCfg.Storage.Driver) ||
		!same(oldCfg.Storage.Path, newCfg.Storage.Path) ||
		!same(oldCfg.Storage.URI, newCfg.Storage.URI) ||
		!same(oldCfg.Storage.Database, newCfg.Storage.Database) ||
		!same(oldCfg.Storage.BusyTimeout, newCfg.Storage.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}

	return changed, attrs
}

// LiveSections are applied without a restart; any other changed section is logged
// as "restart required".
var LiveSections = map[string]bool{"poller": true, "notifier": true, "logging": true}
