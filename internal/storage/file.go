package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "hwbot/pkg/logx"
)

// fileStore keeps state on local disk in <prefix>.state.json,
// a snapshot map key -> State replaced atomically on every save.
type fileStore struct {
	log logx.Logger
	key string

	mu        sync.Mutex
	statePath string
	states    map[string]State
	closed    bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	states := map[string]State{}
	statePath := prefix + ".state.json"
	if err := loadSnapshot(statePath, states); err != nil && !errors.Is(err, os.ErrNotExist) {
		// A corrupt snapshot only costs one possible duplicate message.
		log.Warn("state snapshot unreadable; starting empty", logx.String("path", statePath), logx.Err(err))
	}

	return &fileStore{
		log:       log,
		key:       cfg.Key,
		statePath: statePath,
		states:    states,
	}, nil
}

func (s *fileStore) LoadState(ctx context.Context) (State, bool, error) {
	if err := ctx.Err(); err != nil {
		return State{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return State{}, false, ErrClosed
	}
	st, ok := s.states[s.key]
	return st, ok, nil
}

func (s *fileStore) SaveState(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.states[s.key] = st
	return writeSnapshot(s.statePath, s.states)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func loadSnapshot(path string, out map[string]State) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]State
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func writeSnapshot(path string, states map[string]State) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(states); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
