package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	logx "hwbot/pkg/logx"
)

// ErrMissingCredentials is matched (errors.Is) by *MissingCredentialsError.
var ErrMissingCredentials = errors.New("missing credentials")

// MissingCredentialsError lists the environment keys that were not set.
type MissingCredentialsError struct {
	Keys []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing required credentials: " + strings.Join(e.Keys, ", ")
}

func (e *MissingCredentialsError) Is(target error) bool { return target == ErrMissingCredentials }

// CheckCredentials verifies the three secrets are present.
func CheckCredentials(cfg *Config) error {
	if cfg == nil {
		return &MissingCredentialsError{Keys: []string{EnvPracticumToken, EnvTelegramToken, EnvTelegramChatID}}
	}
	var missing []string
	if strings.TrimSpace(cfg.Upstream.Token) == "" {
		missing = append(missing, EnvPracticumToken)
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		missing = append(missing, EnvTelegramToken)
	}
	if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
		missing = append(missing, EnvTelegramChatID)
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Keys: missing}
	}
	return nil
}

// ParseDuration parses a Go duration string for the config key at path.
// Empty means 0; negative values are rejected.
func ParseDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDuration with def substituted for zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDuration(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

var channelUsername = regexp.MustCompile(`^@[A-Za-z][A-Za-z0-9_]{3,31}$`)

// ParseChatID parses the destination chat: a numeric id ("123", "-100123") or a
// public channel username ("@channel"). Exactly one of id and username is set.
func ParseChatID(raw string) (id int64, username string, err error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "@") {
		if !channelUsername.MatchString(s) {
			return 0, "", fmt.Errorf("telegram.chat_id: invalid channel username %q", raw)
		}
		return 0, s, nil
	}
	id, err = strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("telegram.chat_id: invalid chat id %q (use a number or @channelname)", raw)
	}
	return id, "", nil
}

// Validate checks everything except credentials (see CheckCredentials).
// It expects defaults to be applied already.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Upstream.Endpoint) == "" {
		return errors.New("upstream.endpoint is required")
	}
	if _, err := ParseDuration("upstream.timeout", cfg.Upstream.Timeout); err != nil {
		return err
	}
	if _, err := ParseDuration("upstream.lookback", cfg.Upstream.Lookback); err != nil {
		return err
	}
	if _, err := ParseDuration("telegram.send_timeout", cfg.Telegram.SendTimeout); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Telegram.ChatID) != "" {
		if _, _, err := ParseChatID(cfg.Telegram.ChatID); err != nil {
			return err
		}
	}
	interval, err := ParseDuration("poller.interval", cfg.Poller.Interval)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Poller.ErrorPolicy)) {
	case "always", "suppress_repeats":
	default:
		return fmt.Errorf("poller.error_policy: unknown policy %q (use always or suppress_repeats)", cfg.Poller.ErrorPolicy)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Poller.Window)) {
	case "fixed", "advance":
	default:
		return fmt.Errorf("poller.window: unknown mode %q (use fixed or advance)", cfg.Poller.Window)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Poller.Language)) {
	case "en", "ru":
	default:
		return fmt.Errorf("poller.language: unsupported language %q (use en or ru)", cfg.Poller.Language)
	}
	if cfg.Notifier.RatePerSec < 0 {
		return errors.New("notifier.rate_per_sec must be >= 0")
	}
	if _, err := ParseDuration("notifier.retry_base", cfg.Notifier.RetryBase); err != nil {
		return err
	}
	if _, err := ParseDuration("notifier.retry_max_delay", cfg.Notifier.RetryMaxDelay); err != nil {
		return err
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	if _, err := ParseDuration("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for driver %q", cfg.Storage.Driver)
		}
	case "mongodb", "mongo":
		if strings.TrimSpace(cfg.Storage.URI) == "" {
			return errors.New("storage.uri is required for driver mongodb")
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	return nil
}
