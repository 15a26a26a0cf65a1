package transport

import "context"

// ChatTarget addresses one chat (and optionally one forum topic).
// Username ("@channel") is used when ChatID is 0.
type ChatTarget struct {
	ChatID   int64
	Username string
	ThreadID int // telegram forum topic thread id (0 if none)
}

func (t ChatTarget) IsZero() bool { return t.ChatID == 0 && t.Username == "" }

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Silent         bool
}

// Sender delivers plain text to a chat. Long text may be split into several messages;
// the returned ref points at the first one.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// BotIdentity is what the messaging platform reports about the bot account.
type BotIdentity struct {
	ID       int64
	Username string
}

// Prober is implemented by senders that can check their credentials without sending a message.
type Prober interface {
	Probe(ctx context.Context) (BotIdentity, error)
}
