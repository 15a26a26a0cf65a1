package config

import "strings"

const (
	DefaultEndpoint        = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultUpstreamTimeout = "10s"
	DefaultSendTimeout     = "10s"
	DefaultInterval        = "10m"
	DefaultErrorPolicy     = "suppress_repeats"
	DefaultWindow          = "advance"
	DefaultLanguage        = "en"
	DefaultLogLevel        = "info"
	DefaultRatePerSec      = 1
	DefaultRetryMax        = 2
	DefaultRetryBase       = "500ms"
	DefaultRetryMaxDelay   = "10s"
	DefaultStorageDriver   = "none"
	DefaultMongoDatabase   = "hwbot"
)

// Default returns a config with every optional field populated.
func Default() *Config {
	cfg := &Config{Logging: LoggingConfig{Console: true}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty fields in place. Explicit values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	setDefault(&cfg.Upstream.Endpoint, DefaultEndpoint)
	setDefault(&cfg.Upstream.Timeout, DefaultUpstreamTimeout)
	setDefault(&cfg.Telegram.SendTimeout, DefaultSendTimeout)
	setDefault(&cfg.Poller.Interval, DefaultInterval)
	setDefault(&cfg.Poller.ErrorPolicy, DefaultErrorPolicy)
	setDefault(&cfg.Poller.Window, DefaultWindow)
	setDefault(&cfg.Poller.Language, DefaultLanguage)
	setDefault(&cfg.Logging.Level, DefaultLogLevel)
	setDefault(&cfg.Notifier.RetryBase, DefaultRetryBase)
	setDefault(&cfg.Notifier.RetryMaxDelay, DefaultRetryMaxDelay)
	setDefault(&cfg.Storage.Driver, DefaultStorageDriver)

	if cfg.Notifier.RatePerSec <= 0 {
		cfg.Notifier.RatePerSec = DefaultRatePerSec
	}
	if cfg.Notifier.RetryMax == 0 {
		cfg.Notifier.RetryMax = DefaultRetryMax
	}
	if strings.EqualFold(cfg.Storage.Driver, "mongodb") || strings.EqualFold(cfg.Storage.Driver, "mongo") {
		setDefault(&cfg.Storage.Database, DefaultMongoDatabase)
	}
}

func setDefault(field *string, def string) {
	if strings.TrimSpace(*field) == "" {
		*field = def
	}
}
