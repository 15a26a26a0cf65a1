package config

// Config is the whole runtime configuration.
//
// It is built once at startup (file + .env + environment) and handed to the app
// by pointer. Hot reload produces a new *Config; credentials from a reloaded file
// are ignored (see Manager.Watch callers).
type Config struct {
	Upstream UpstreamConfig `json:"upstream"`
	Telegram TelegramConfig `json:"telegram"`
	Poller   PollerConfig   `json:"poller"`
	Notifier NotifierConfig `json:"notifier"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
}

// UpstreamConfig describes the homework status API.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type UpstreamConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	// Token is the API secret. Prefer PRACTICUM_TOKEN in the environment.
	Token string `json:"token,omitempty"`
	// Timeout bounds a single fetch (default 10s).
	Timeout string `json:"timeout,omitempty"`
	// Lookback moves the initial poll window into the past (default "0s").
	Lookback string `json:"lookback,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// ChatID is the destination chat: a numeric id or a public "@channelname".
	// Kept as a string so it can come from env as-is.
	ChatID   string `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	// APIURL overrides the Bot API base URL (tests, self-hosted bot api).
	APIURL      string `json:"api_url,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

// PollerConfig controls the poll-detect-notify loop.
//
// Defaults (when fields are omitted/zero):
//   - interval: "10m"
//   - error_policy: "suppress_repeats"
//   - window: "advance"
//   - language: "en"
type PollerConfig struct {
	Interval    string `json:"interval,omitempty"`
	ErrorPolicy string `json:"error_policy,omitempty"`
	Window      string `json:"window,omitempty"`
	Language    string `json:"language,omitempty"`
}

// NotifierConfig controls delivery retries and throttling.
//
// RetryMax 0 means the default (2); use a negative value to disable retries.
type NotifierConfig struct {
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the optional persistence of the last-sent state.
//
// Example:
//
//	storage: { driver: sqlite, path: ./data/hwbot.db }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	URI         string `json:"uri,omitempty"`
	Database    string `json:"database,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}
