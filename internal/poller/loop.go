package poller

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	"hwbot/internal/storage"
	logx "hwbot/pkg/logx"
)

const (
	defaultInterval = 10 * time.Minute
	storeTimeout    = 5 * time.Second
)

type Option func(*Loop)

func WithLogger(log logx.Logger) Option { return func(l *Loop) { l.log = log } }

func WithBus(bus eventbus.Bus) Option { return func(l *Loop) { l.bus = bus } }

// WithStore mirrors the loop state into st after every iteration.
func WithStore(st storage.Store) Option { return func(l *Loop) { l.store = st } }

func WithClock(now func() time.Time) Option { return func(l *Loop) { l.now = now } }

// WithAfterIteration registers a hook called after each iteration, before the sleep.
func WithAfterIteration(fn func(err error)) Option { return func(l *Loop) { l.after = fn } }

// Loop polls the homework API and reports status changes. Run must be called from one goroutine.
type Loop struct {
	fetcher  Fetcher
	notifier Notifier
	log      logx.Logger
	bus      eventbus.Bus
	store    storage.Store
	now      func() time.Time
	newID    func() string
	after    func(err error)
	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	updates chan Settings

	mu       sync.Mutex
	settings Settings
	state    State
}

// New creates a loop whose window starts at start (unix seconds).
func New(s Settings, start int64, f Fetcher, n Notifier, opts ...Option) *Loop {
	l := &Loop{
		fetcher:  f,
		notifier: n,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		updates:  make(chan Settings, 1),
		settings: normalize(s),
		state:    State{Window: start},
	}
	l.sleep = l.sleepInterruptible
	for _, o := range opts {
		o(l)
	}
	if l.log.IsZero() {
		l.log = logx.Nop()
	}
	l.log = l.log.With(logx.String("comp", "poller"))
	return l
}

func normalize(s Settings) Settings {
	if s.Interval <= 0 {
		s.Interval = defaultInterval
	}
	if s.ErrorPolicy == "" {
		s.ErrorPolicy = PolicySuppressRepeats
	}
	if s.Window == "" {
		s.Window = WindowAdvance
	}
	if s.Language == "" {
		s.Language = homework.LangEN
	}
	return s
}

// State returns a copy of the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) Settings() Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// Apply queues new settings. They take effect before the next iteration;
// a pending update that was not picked up yet is replaced.
func (l *Loop) Apply(s Settings) {
	s = normalize(s)
	for {
		select {
		case l.updates <- s:
			return
		default:
		}
		select {
		case <-l.updates:
		default:
		}
	}
}

// Restore loads a previously saved state. Without a store, or when nothing was
// saved, the startup state is kept.
func (l *Loop) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	st, ok, err := l.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return nil
	}
	l.mu.Lock()
	l.state.LastStatus = st.LastStatus
	l.state.StatusKey = st.StatusKey
	l.state.LastError = st.LastError
	if st.Window > l.state.Window && l.settings.Window == WindowAdvance {
		l.state.Window = st.Window
	}
	window := l.state.Window
	l.mu.Unlock()
	l.log.Info("state restored", logx.Int64("window", window), logx.Bool("has_status", st.LastStatus != ""))
	return nil
}

// Run repeats RunOnce and sleeps the interval after each iteration, whatever its outcome.
// It returns nil when ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("poll loop started", logx.Duration("interval", l.Settings().Interval), logx.Int64("window", l.State().Window))
	for {
		l.drainUpdates()
		err := l.RunOnce(ctx)
		if ctx.Err() != nil {
			l.log.Info("poll loop stopped")
			return nil
		}
		if l.after != nil {
			l.after(err)
		}
		if err := l.sleep(ctx, l.Settings().Interval); err != nil {
			l.log.Info("poll loop stopped")
			return nil
		}
	}
}

func (l *Loop) drainUpdates() {
	select {
	case s := <-l.updates:
		l.mu.Lock()
		old := l.settings
		l.settings = s
		l.mu.Unlock()
		if old != s {
			l.log.Info("poll settings applied",
				logx.Duration("interval", s.Interval),
				logx.String("error_policy", string(s.ErrorPolicy)),
				logx.String("window", string(s.Window)),
				logx.String("language", string(s.Language)))
		}
	default:
	}
}

func (l *Loop) sleepInterruptible(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunOnce performs one fetch/validate/format/notify cycle. Failures are reported through
// the error path and returned; they never escape as panics.
func (l *Loop) RunOnce(ctx context.Context) error {
	pollID := l.newID()
	log := l.log.With(logx.String("poll_id", pollID))
	started := l.now()

	l.mu.Lock()
	settings := l.settings
	from := l.state.Window
	before := l.state
	l.mu.Unlock()

	l.publish(eventbus.PollStarted, eventbus.PollEvent{PollID: pollID, From: from})

	items, err := l.iterate(ctx, log, pollID, settings, from)
	took := l.now().Sub(started)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("iteration interrupted", logx.Err(err))
			return ctx.Err()
		}
		l.handleError(ctx, log, settings, err)
		l.publish(eventbus.PollFailed, eventbus.PollEvent{
			PollID: pollID, From: from, Kind: string(homework.KindOf(err)), Error: err.Error(), Duration: took,
		})
	} else {
		l.publish(eventbus.PollSucceeded, eventbus.PollEvent{PollID: pollID, From: from, Items: items, Duration: took})
	}

	if after := l.State(); after != before {
		l.persist(ctx, log, after)
	}
	return err
}

func (l *Loop) iterate(ctx context.Context, log logx.Logger, pollID string, s Settings, from int64) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("iteration panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	requestedAt := l.now().Unix()
	raw, err := l.fetcher.Fetch(ctx, from)
	if err != nil {
		return 0, err
	}
	items, err := homework.ValidateResponse(raw)
	if err != nil {
		return 0, err
	}

	if len(items) == 0 {
		log.Debug("no homework updates", logx.Int64("from", from))
	} else {
		msg, err := homework.FormatStatus(items[0], s.Language)
		if err != nil {
			return len(items), err
		}
		wi, _ := homework.ParseWorkItem(items[0])
		key := wi.Key()
		if l.State().sameStatus(key, msg) {
			log.Debug("homework status unchanged", logx.String("status_key", key))
		} else {
			if err := l.notifier.Notify(ctx, msg); err != nil {
				return len(items), err
			}
			l.mu.Lock()
			l.state.LastStatus = msg
			l.state.StatusKey = key
			l.mu.Unlock()
			log.Info("homework status changed; notification sent", logx.String("message", msg))

			l.publish(eventbus.StatusChanged, eventbus.StatusEvent{
				PollID: pollID, Homework: wi.Name, Status: string(wi.Status), Message: msg,
			})
		}
	}

	l.mu.Lock()
	l.state.LastError = ""
	if s.Window == WindowAdvance {
		next := requestedAt
		if cd, ok := homework.CurrentDate(raw); ok {
			next = cd
		}
		if next > l.state.Window {
			l.state.Window = next
		}
	}
	l.mu.Unlock()
	return len(items), nil
}

func (l *Loop) handleError(ctx context.Context, log logx.Logger, s Settings, err error) {
	diag := s.Language.Diagnostic(err)
	fields := []logx.Field{logx.Err(err)}
	if k := homework.KindOf(err); k != "" {
		fields = append(fields, logx.String("kind", string(k)))
	}
	log.Error("poll iteration failed", fields...)

	if s.ErrorPolicy == PolicySuppressRepeats && diag == l.State().LastError {
		log.Debug("diagnostic already sent; suppressed")
		return
	}
	if nerr := l.notifier.Notify(ctx, diag); nerr != nil {
		log.Error("diagnostic notification failed", logx.Err(nerr))
		return
	}
	l.mu.Lock()
	l.state.LastError = diag
	l.mu.Unlock()
}

func (l *Loop) persist(ctx context.Context, log logx.Logger, st State) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	err := l.store.SaveState(ctx, storage.State{
		LastStatus: st.LastStatus,
		StatusKey:  st.StatusKey,
		LastError:  st.LastError,
		Window:     st.Window,
		UpdatedAt:  l.now(),
	})
	if err != nil {
		log.Warn("state not saved", logx.Err(err))
	}
}

func (l *Loop) publish(typ string, data any) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(eventbus.Event{Type: typ, Time: l.now(), Data: data})
}
