package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

type fakeBotAPI struct {
	mu    sync.Mutex
	paths []string
	sent  []map[string]any
	fail  bool
	// block, when set, stalls every request until it is closed.
	block chan struct{}
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-r.Context().Done():
			return
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	if f.fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"hw","username":"hw_status_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.sent = append(f.sent, body)
		id := len(f.sent)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":` + itoa(id) + `,"date":1700000000,"chat":{"id":100,"type":"private"},"text":"x"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestAdapter(t *testing.T, api *fakeBotAPI) *Adapter {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	a, err := New(Config{Token: "123:abc", APIURL: srv.URL, SendTimeout: 2 * time.Second}, logx.Nop())
	require.NoError(t, err)
	return a
}

func TestSendTextDeliversToChat(t *testing.T) {
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)

	ref, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 100}, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.MessageID)
	assert.Equal(t, int64(100), ref.ChatID)

	require.Len(t, api.sent, 1)
	assert.Equal(t, "hello", api.sent[0]["text"])
	assert.Equal(t, "/bot123:abc/sendMessage", api.paths[0])
}

func TestSendTextToChannelUsername(t *testing.T) {
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)

	ref, err := a.SendText(context.Background(), kit.ChatTarget{Username: "@hw_channel"}, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), ref.ChatID)

	require.Len(t, api.sent, 1)
	assert.Equal(t, "@hw_channel", api.sent[0]["chat_id"])
}

func TestSendTextSplitsLongMessages(t *testing.T) {
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)

	text := strings.Repeat("a", telegramTextLimit) + "\n" + strings.Repeat("b", 10)
	ref, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 100}, text, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.MessageID)
	assert.Len(t, api.sent, 2)
}

func TestSendTextReportsAPIError(t *testing.T) {
	api := &fakeBotAPI{fail: true}
	a := newTestAdapter(t, api)

	_, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 100}, "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendTextAbortsInFlightRequestOnCancel(t *testing.T) {
	api := &fakeBotAPI{block: make(chan struct{})}
	a := newTestAdapter(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := a.SendText(ctx, kit.ChatTarget{ChatID: 100}, "hello", nil)
	require.Error(t, err)
	// The client timeout is 2s; only the context can end the call this early.
	assert.Less(t, time.Since(started), time.Second)

	// The adapter stays usable after an aborted call.
	close(api.block)
	_, err = a.SendText(context.Background(), kit.ChatTarget{ChatID: 100}, "again", nil)
	require.NoError(t, err)
}

func TestSendTextRejectsEmptyChat(t *testing.T) {
	a := newTestAdapter(t, &fakeBotAPI{})
	_, err := a.SendText(context.Background(), kit.ChatTarget{}, "hello", nil)
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	a := newTestAdapter(t, &fakeBotAPI{})
	id, err := a.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.ID)
	assert.Equal(t, "hw_status_bot", id.Username)
}

func TestNewRejectsEmptyToken(t *testing.T) {
	_, err := New(Config{Token: "  "}, logx.Nop())
	assert.Error(t, err)
}

func TestSplitTelegramText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  int
	}{
		{name: "short", in: "abc", limit: 10, want: 1},
		{name: "exact", in: strings.Repeat("x", 10), limit: 10, want: 1},
		{name: "hard split", in: strings.Repeat("x", 25), limit: 10, want: 3},
		{name: "newline split", in: strings.Repeat("x", 6) + "\n" + strings.Repeat("y", 6), limit: 10, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitTelegramText(tt.in, tt.limit)
			assert.Len(t, got, tt.want)
			for _, c := range got {
				assert.LessOrEqual(t, len([]rune(c)), tt.limit)
			}
		})
	}
}
