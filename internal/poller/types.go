package poller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hwbot/internal/homework"
)

// Fetcher returns the raw API answer for the window starting at from.
type Fetcher interface {
	Fetch(ctx context.Context, from int64) (any, error)
}

// Notifier delivers one message or returns a delivery error.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type ErrorPolicy string

const (
	// PolicyAlways notifies on every failed iteration.
	PolicyAlways ErrorPolicy = "always"
	// PolicySuppressRepeats notifies only when the diagnostic differs from the last one sent.
	PolicySuppressRepeats ErrorPolicy = "suppress_repeats"
)

type WindowMode string

const (
	// WindowFixed keeps the startup window forever.
	WindowFixed WindowMode = "fixed"
	// WindowAdvance moves the window forward after every successful fetch.
	WindowAdvance WindowMode = "advance"
)

func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAlways, PolicySuppressRepeats:
		return p, nil
	case "":
		return PolicySuppressRepeats, nil
	default:
		return "", fmt.Errorf("unknown error policy %q", s)
	}
}

func ParseWindowMode(s string) (WindowMode, error) {
	switch m := WindowMode(strings.ToLower(strings.TrimSpace(s))); m {
	case WindowFixed, WindowAdvance:
		return m, nil
	case "":
		return WindowAdvance, nil
	default:
		return "", fmt.Errorf("unknown window mode %q", s)
	}
}

// Settings can change while the loop runs.
type Settings struct {
	Interval    time.Duration
	ErrorPolicy ErrorPolicy
	Window      WindowMode
	Language    homework.Language
}

// State is what the loop remembers between iterations.
// StatusKey decides whether a status is new; LastStatus is the text that was sent for it.
type State struct {
	LastStatus string
	StatusKey  string
	LastError  string
	Window     int64
}

// sameStatus reports whether key was already reported. States saved before
// StatusKey existed fall back to comparing the rendered text.
func (s State) sameStatus(key, msg string) bool {
	if s.StatusKey != "" {
		return s.StatusKey == key
	}
	return s.LastStatus != "" && s.LastStatus == msg
}
