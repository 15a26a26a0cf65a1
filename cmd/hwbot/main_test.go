package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwbot/internal/config"
)

type countingServer struct {
	calls atomic.Int32
	mu    sync.Mutex
	paths []string
	body  string
}

func (s *countingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"hw","username":"hw_status_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":100,"type":"private"},"text":"x"}}`))
	default:
		_, _ = w.Write([]byte(s.body))
	}
}

func (s *countingServer) sawPath(suffix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func envLookup(env map[string]string) config.LookupFunc {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func fullEnv() map[string]string {
	return map[string]string{
		config.EnvPracticumToken: "practicum-secret",
		config.EnvTelegramToken:  "123:abc",
		config.EnvTelegramChatID: "100",
	}
}

func writeConfig(t *testing.T, dir, upstreamURL, telegramURL string) string {
	t.Helper()
	path := filepath.Join(dir, "hwbot.yaml")
	body := `
upstream:
  endpoint: ` + upstreamURL + `
telegram:
  api_url: ` + telegramURL + `
poller:
  interval: 20ms
notifier:
  retry_max: -1
logging:
  level: error
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

type cliResult struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func execute(t *testing.T, ctx context.Context, env map[string]string, args ...string) (*cliResult, error) {
	t.Helper()
	cc := &commandContext{lookup: envLookup(env)}
	cmd := newRootCommandWith(cc)
	res := &cliResult{}
	cmd.SetOut(&res.stdout)
	cmd.SetErr(&res.stderr)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	return res, cmd.ExecuteContext(ctx)
}

func TestRunWithoutCredentialsExitsBeforeAnyNetworkCall(t *testing.T) {
	srv := &countingServer{body: `{"homeworks":[]}`}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, ts.URL, ts.URL)

	for _, missing := range []string{config.EnvPracticumToken, config.EnvTelegramToken, config.EnvTelegramChatID} {
		t.Run(missing, func(t *testing.T) {
			env := fullEnv()
			delete(env, missing)

			res, err := execute(t, context.Background(), env, "run", "--config", cfgPath, "--state-dir", dir)
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrMissingCredentials))
			assert.Contains(t, err.Error(), missing)
			assert.Contains(t, res.stderr.String(), "required credentials are missing")
		})
	}
	assert.Zero(t, srv.calls.Load())
}

func TestRunStopsOnCancel(t *testing.T) {
	up := &countingServer{body: `{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":1700000000}`}
	upSrv := httptest.NewServer(up)
	defer upSrv.Close()
	tg := &countingServer{}
	tgSrv := httptest.NewServer(tg)
	defer tgSrv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, upSrv.URL, tgSrv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := execute(t, ctx, fullEnv(), "--config", cfgPath, "--state-dir", dir)
		done <- err
	}()

	require.Eventually(t, func() bool { return tg.sawPath("/sendMessage") }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestCheckCommand(t *testing.T) {
	up := &countingServer{body: `{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":1700000000}`}
	upSrv := httptest.NewServer(up)
	defer upSrv.Close()
	tg := &countingServer{}
	tgSrv := httptest.NewServer(tg)
	defer tgSrv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, upSrv.URL, tgSrv.URL)

	res, err := execute(t, context.Background(), fullEnv(), "check", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, res.stdout.String(), "@hw_status_bot")
	assert.Contains(t, res.stdout.String(), "1 item(s)")
	assert.False(t, tg.sawPath("/sendMessage"))
}

func TestSendTestCommand(t *testing.T) {
	tg := &countingServer{}
	tgSrv := httptest.NewServer(tg)
	defer tgSrv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1/", tgSrv.URL)

	res, err := execute(t, context.Background(), fullEnv(), "send-test", "--config", cfgPath, "--text", "ping")
	require.NoError(t, err)
	assert.Contains(t, res.stdout.String(), "Test notification sent")
	assert.True(t, tg.sawPath("/sendMessage"))
}

func TestSendTestRequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1/", "http://127.0.0.1:1")

	_, err := execute(t, context.Background(), map[string]string{}, "send-test", "--config", cfgPath)
	assert.True(t, errors.Is(err, config.ErrMissingCredentials))
}
