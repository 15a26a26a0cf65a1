package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys. Secrets are expected here rather than in the config file.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
	EnvLogLevel       = "HWBOT_LOG_LEVEL"
)

// Older deployments used these names; they are read when the primary key is unset.
var envAliases = map[string][]string{
	EnvPracticumToken: {"PRACTICUM_SECRET_TOKEN"},
	EnvTelegramToken:  {"TELEGRAM_SECRET_TOKEN"},
	EnvTelegramChatID: {"TELEGRAM_CHAT_SECRET_ID"},
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads KEY=VALUE files into the process environment.
// Missing files are ignored; variables already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// applyEnv overlays environment values on cfg. Empty values are ignored.
func applyEnv(cfg *Config, lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v := lookupAny(lookup, EnvPracticumToken); v != "" {
		cfg.Upstream.Token = v
	}
	if v := lookupAny(lookup, EnvTelegramToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := lookupAny(lookup, EnvTelegramChatID); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := lookupAny(lookup, EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
}

func lookupAny(lookup LookupFunc, key string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	for _, alias := range envAliases[key] {
		if v, ok := lookup(alias); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
