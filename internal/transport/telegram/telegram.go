package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

const (
	telegramTextLimit  = 4000
	defaultSendTimeout = 10 * time.Second
)

type Config struct {
	Token string
	// APIURL overrides the Bot API base URL (default https://api.telegram.org).
	APIURL      string
	SendTimeout time.Duration
}

// Adapter is a send-only Telegram client. It never polls for updates.
type Adapter struct {
	cfg Config
	log logx.Logger

	// mu serializes API calls so tr carries the context of the call in flight.
	mu  sync.Mutex
	bot *tele.Bot
	tr  *ctxTransport
}

// ctxTransport binds outgoing requests to the caller's context. telebot's
// Send takes no context, so without it cancellation would only be seen
// between message chunks.
type ctxTransport struct {
	base http.RoundTripper

	mu  sync.Mutex
	ctx context.Context
}

func (t *ctxTransport) bind(ctx context.Context) (unbind func()) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.ctx = nil
		t.mu.Unlock()
	}
}

func (t *ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	return t.base.RoundTrip(req)
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	tr := &ctxTransport{base: http.DefaultTransport}
	b, err := tele.NewBot(tele.Settings{
		URL:   strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Token: strings.TrimSpace(cfg.Token),
		// Offline skips getMe at construction; credentials are checked on first send or by Probe.
		Offline: true,
		Client:  &http.Client{Timeout: timeout, Transport: tr},
		OnError: func(err error, _ tele.Context) {},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log.With(logx.String("comp", "telegram")), bot: b, tr: tr}, nil
}

// splitTelegramText splits long messages into chunks that are safe to send to Telegram.
// It prefers newline boundaries.
func splitTelegramText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))

		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid extremely small chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	if to.IsZero() {
		return kit.MessageRef{}, errors.New("telegram chat id is empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.tr.bind(ctx)()

	chat := recipient(to)
	var first kit.MessageRef
	for i, chunk := range splitTelegramText(text, telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			DisableNotification:   opt.Silent,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
			if msg.Chat != nil {
				first.ChatID = msg.Chat.ID
			}
		}
	}
	a.log.Debug("message sent", logx.String("chat", chat.Recipient()), logx.Int("message_id", first.MessageID))
	return first, nil
}

// chatRecipient is the chat_id parameter as Telegram accepts it: a number or "@username".
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

func recipient(to kit.ChatTarget) chatRecipient {
	if to.ChatID != 0 {
		return chatRecipient(strconv.FormatInt(to.ChatID, 10))
	}
	return chatRecipient(to.Username)
}

// Probe calls getMe to confirm the token is accepted.
func (a *Adapter) Probe(ctx context.Context) (kit.BotIdentity, error) {
	if err := ctx.Err(); err != nil {
		return kit.BotIdentity{}, err
	}
	a.mu.Lock()
	unbind := a.tr.bind(ctx)
	data, err := a.bot.Raw("getMe", map[string]string{})
	unbind()
	a.mu.Unlock()
	if err != nil {
		return kit.BotIdentity{}, err
	}
	var resp struct {
		Result tele.User `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return kit.BotIdentity{}, err
	}
	return kit.BotIdentity{ID: resp.Result.ID, Username: resp.Result.Username}, nil
}

var (
	_ kit.Sender = (*Adapter)(nil)
	_ kit.Prober = (*Adapter)(nil)
)
