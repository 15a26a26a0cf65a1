package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"hwbot/internal/config"
	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/runtime/supervisor"
	"hwbot/internal/sdnotify"
	"hwbot/internal/storage"
	"hwbot/internal/transport/telegram"
	logx "hwbot/pkg/logx"
)

const lockFileName = "hwbot.lock"

var ErrAlreadyRunning = errors.New("another hwbot instance holds the lock")

type Options struct {
	// StateDir holds the instance lock. Defaults to the storage directory, else the OS temp dir.
	StateDir string
}

type App struct {
	cfgm *config.Manager
	// boot is the startup config; its credentials are the only ones ever used.
	boot *config.Config
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store storage.Store
	notif *notifier.Service
	loop  *poller.Loop
	sd    *sdnotify.Notifier

	lockPath string
	lock     *flock.Flock
}

// New wires every component from the committed config of cfgm.
// Credentials must have been checked by the caller.
func New(ctx context.Context, cfgm *config.Manager, opts Options) (*App, error) {
	cfg := cfgm.Get()
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}
	if err := config.CheckCredentials(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	appLog := log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, sc, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		appLog.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	a := &App{
		cfgm:  cfgm,
		boot:  cfg,
		log:   appLog,
		logs:  logSvc,
		bus:   bus,
		store: store,
		sd:    sdnotify.New(log),
	}
	if err := a.build(cfg, log); err != nil {
		_ = a.closeStore()
		return nil, err
	}

	dir := strings.TrimSpace(opts.StateDir)
	if dir == "" {
		dir = os.TempDir()
		if p := strings.TrimSpace(cfg.Storage.Path); p != "" && sc.Driver != "mongodb" && sc.Driver != "mongo" {
			dir = filepath.Dir(p)
		}
	}
	a.lockPath = filepath.Join(dir, lockFileName)
	a.lock = flock.New(a.lockPath)
	return a, nil
}

func (a *App) build(cfg *config.Config, log logx.Logger) error {
	tcfg, err := mapTelegramConfig(cfg)
	if err != nil {
		return err
	}
	ad, err := telegram.New(tcfg, log)
	if err != nil {
		return err
	}
	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return err
	}
	a.notif = notifier.New(ncfg, ad, log, a.bus)

	fcfg, err := mapFetcherConfig(cfg)
	if err != nil {
		return err
	}
	fetcher, err := homework.NewFetcher(fcfg)
	if err != nil {
		return err
	}

	settings, err := mapPollerSettings(cfg)
	if err != nil {
		return err
	}
	start, err := initialWindow(cfg, nowFunc())
	if err != nil {
		return err
	}
	a.loop = poller.New(settings, start, fetcher, a.notif,
		poller.WithLogger(log),
		poller.WithBus(a.bus),
		poller.WithStore(a.store),
		poller.WithAfterIteration(a.afterIteration),
	)
	return nil
}

func (a *App) afterIteration(err error) {
	a.sd.Watchdog()
	if err != nil {
		a.sd.Status("last poll failed: " + string(homework.KindOf(err)))
		return
	}
	a.sd.Status("polling")
}

// Done is closed when the app supervisor context is cancelled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Loop() *poller.Loop { return a.loop }

func (a *App) Bus() eventbus.Bus { return a.bus }

func (a *App) Start(ctx context.Context) error {
	locked, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", a.lockPath, err)
	}
	if !locked {
		return fmt.Errorf("%w (%s)", ErrAlreadyRunning, a.lockPath)
	}

	if err := a.loop.Restore(ctx); err != nil {
		a.log.Warn("saved state ignored", logx.Err(err))
	}

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.sup.Go("poller", a.loop.Run)
	a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, time.Minute))
	a.startReload()
	a.startEventLog()
	a.sup.Go0("systemd.watchdog", a.sd.WatchdogLoop)

	a.sd.Ready()
	a.log.Info("hwbot started", logx.String("lock", a.lockPath))
	return nil
}

func (a *App) startEventLog() {
	events, unsub := a.bus.Subscribe(64)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
			}
		}
	})
}

// Stop cancels every goroutine, waits for them until ctx is done and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.sd.Stopping()
	var err error
	if a.sup != nil {
		if werr := a.sup.Stop(ctx); werr != nil && !errors.Is(werr, context.Canceled) {
			err = werr
		}
	}
	if cerr := a.closeStore(); cerr != nil {
		a.log.Warn("storage close failed", logx.Err(cerr))
	}
	if a.lock != nil && a.lock.Locked() {
		if uerr := a.lock.Unlock(); uerr != nil {
			a.log.Warn("failed to release lock", logx.Err(uerr))
		}
	}
	a.log.Info("hwbot stopped")
	_ = a.logs.Close()
	return err
}

func (a *App) closeStore() error {
	if a.store == nil {
		return nil
	}
	st := a.store
	a.store = nil
	return st.Close()
}
