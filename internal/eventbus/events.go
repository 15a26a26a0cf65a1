package eventbus

import "time"

// Event types published by the poll loop and the notifier.
const (
	PollStarted   = "poll.started"
	PollSucceeded = "poll.succeeded"
	PollFailed    = "poll.failed"
	StatusChanged = "status.changed"

	NotifySent   = "notifier.sent"
	NotifyFailed = "notifier.failed"

	ConfigReloaded = "config.reloaded"
)

// PollEvent describes one loop iteration.
type PollEvent struct {
	PollID   string        `json:"poll_id"`
	From     int64         `json:"from"`
	Items    int           `json:"items,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// StatusEvent is published when a new status message has been delivered.
type StatusEvent struct {
	PollID   string `json:"poll_id"`
	Homework string `json:"homework"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// NotificationEvent describes one delivery attempt sequence.
type NotificationEvent struct {
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
