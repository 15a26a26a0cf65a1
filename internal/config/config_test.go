package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseWithoutFileUsesDefaultsAndEnv(t *testing.T) {
	m := NewManager("")
	m.SetLookup(envMap(map[string]string{
		EnvPracticumToken: "p-token",
		EnvTelegramToken:  "t-token",
		EnvTelegramChatID: "12345",
	}))

	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, cfg.Upstream.Endpoint)
	assert.Equal(t, DefaultInterval, cfg.Poller.Interval)
	assert.Equal(t, DefaultErrorPolicy, cfg.Poller.ErrorPolicy)
	assert.Equal(t, DefaultWindow, cfg.Poller.Window)
	assert.True(t, cfg.Logging.Console)
	assert.Equal(t, "p-token", cfg.Upstream.Token)
	assert.NoError(t, CheckCredentials(cfg))
	assert.Same(t, cfg, m.Get())
}

func TestEnvAliases(t *testing.T) {
	m := NewManager("")
	m.SetLookup(envMap(map[string]string{
		"PRACTICUM_SECRET_TOKEN":  "p",
		"TELEGRAM_SECRET_TOKEN":   "t",
		"TELEGRAM_CHAT_SECRET_ID": "-100200",
	}))
	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, "p", cfg.Upstream.Token)
	assert.Equal(t, "t", cfg.Telegram.Token)
	assert.Equal(t, "-100200", cfg.Telegram.ChatID)
}

func TestCheckCredentialsListsMissingKeys(t *testing.T) {
	cfg := Default()
	cfg.Telegram.Token = "t"

	err := CheckCredentials(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredentials))

	var mc *MissingCredentialsError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, []string{EnvPracticumToken, EnvTelegramChatID}, mc.Keys)
}

func TestParseYAMLFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
upstream:
  timeout: 3s
  lookback: 168h
poller:
  interval: 5s
  error_policy: always
  window: fixed
  language: ru
storage:
  driver: file
  path: ./state/hwbot.json
`)
	m := NewManager(path)
	m.SetLookup(envMap(nil))

	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, "3s", cfg.Upstream.Timeout)
	assert.Equal(t, "168h", cfg.Upstream.Lookback)
	assert.Equal(t, "always", cfg.Poller.ErrorPolicy)
	assert.Equal(t, "fixed", cfg.Poller.Window)
	assert.Equal(t, "ru", cfg.Poller.Language)
	assert.Equal(t, "file", cfg.Storage.Driver)
}

func TestParseTOMLFile(t *testing.T) {
	path := writeFile(t, "config.toml", `
[poller]
interval = "30s"

[notifier]
retry_max = 4
rate_per_sec = 2
`)
	m := NewManager(path)
	m.SetLookup(envMap(nil))

	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, "30s", cfg.Poller.Interval)
	assert.Equal(t, 4, cfg.Notifier.RetryMax)
	assert.Equal(t, 2, cfg.Notifier.RatePerSec)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "config.json", `{"poller": {"intervall": "5s"}}`)
	m := NewManager(path)
	m.SetLookup(envMap(nil))

	_, err := m.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intervall")
}

func TestParseRejectsTrailingData(t *testing.T) {
	path := writeFile(t, "config.json", `{} {}`)
	m := NewManager(path)
	m.SetLookup(envMap(nil))

	_, err := m.Parse()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{name: "bad interval", mutate: func(c *Config) { c.Poller.Interval = "soon" }, errSub: "poller.interval"},
		{name: "zero interval", mutate: func(c *Config) { c.Poller.Interval = "0s" }, errSub: "poller.interval must be > 0"},
		{name: "bad policy", mutate: func(c *Config) { c.Poller.ErrorPolicy = "never" }, errSub: "poller.error_policy"},
		{name: "bad window", mutate: func(c *Config) { c.Poller.Window = "sliding" }, errSub: "poller.window"},
		{name: "bad language", mutate: func(c *Config) { c.Poller.Language = "de" }, errSub: "poller.language"},
		{name: "bad chat id", mutate: func(c *Config) { c.Telegram.ChatID = "channel" }, errSub: "telegram.chat_id"},
		{name: "short channel name", mutate: func(c *Config) { c.Telegram.ChatID = "@ab" }, errSub: "telegram.chat_id"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, errSub: "logging.level"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, errSub: "storage.path"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Storage.Driver = "mongodb" }, errSub: "storage.uri"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "redis" }, errSub: "storage.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}

	assert.NoError(t, Validate(Default()))
}

func TestSummarizeConfigChange(t *testing.T) {
	oldCfg := Default()
	newCfg := Default()
	newCfg.Poller.Interval = "1m"
	newCfg.Logging.Level = "debug"
	newCfg.Telegram.Token = "rotated"

	sections, attrs := SummarizeConfigChange(oldCfg, newCfg)
	assert.Equal(t, []string{"poller", "logging"}, sections)
	assert.NotEmpty(t, attrs)

	sections, _ = SummarizeConfigChange(oldCfg, Default())
	assert.Empty(t, sections)
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := writeFile(t, ".env", "HWBOT_TEST_DOTENV=from-file\nHWBOT_TEST_DOTENV_KEEP=from-file\n")
	t.Setenv("HWBOT_TEST_DOTENV_KEEP", "from-env")

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("HWBOT_TEST_DOTENV") })

	assert.Equal(t, "from-file", os.Getenv("HWBOT_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("HWBOT_TEST_DOTENV_KEEP"))
}

func TestExampleConfigParses(t *testing.T) {
	m := NewManager(filepath.Join("..", "..", "config.example.yaml"))
	m.SetLookup(envMap(nil))

	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, "suppress_repeats", cfg.Poller.ErrorPolicy)
	assert.Equal(t, "none", cfg.Storage.Driver)
	assert.True(t, errors.Is(CheckCredentials(cfg), ErrMissingCredentials))
}

func TestParseChatID(t *testing.T) {
	id, username, err := ParseChatID(" -100123 ")
	require.NoError(t, err)
	assert.Equal(t, int64(-100123), id)
	assert.Empty(t, username)

	id, username, err = ParseChatID("@hw_reviews")
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.Equal(t, "@hw_reviews", username)

	for _, bad := range []string{"0", "reviews", "@", "@bad name", "@1abcd"} {
		_, _, err := ParseChatID(bad)
		assert.Error(t, err, bad)
	}
}
