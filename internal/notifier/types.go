package notifier

import (
	"time"

	kit "hwbot/internal/transport"
)

type Config struct {
	Target kit.ChatTarget
	// RatePerSec caps sends per second (0 = unlimited).
	RatePerSec int
	// RetryMax is the number of extra attempts after the first failure.
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	// SendTimeout bounds a single transport call.
	SendTimeout time.Duration
}

type HistoryItem struct {
	At       time.Time
	Text     string
	Attempts int
}
