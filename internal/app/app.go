// Package app wires the prompt store, tray, scheduler and interaction
// handling into one runnable unit.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"

	"github.com/nhle/fusion-prompts/internal/credential"
	"github.com/nhle/fusion-prompts/internal/mask"
	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/presenter"
	"github.com/nhle/fusion-prompts/internal/quest"
	"github.com/nhle/fusion-prompts/internal/reconcile"
	"github.com/nhle/fusion-prompts/internal/schedule"
	"github.com/nhle/fusion-prompts/internal/store"
	"github.com/nhle/fusion-prompts/internal/telemetry"
	"github.com/nhle/fusion-prompts/internal/tray"
)

// Options holds collaborators that callers may replace.
type Options struct {
	// Keyring stores the masking secret. Nil opens the system keyring.
	Keyring keyring.Keyring

	// Tray is the notification surface. Nil uses an in-memory tray that
	// grants permission.
	Tray tray.Tray

	// Out receives deferred entry requests as JSON lines. Nil discards them.
	Out io.Writer

	// Reset wipes all stored data and the masking secret on startup.
	Reset bool
}

// App is the assembled prompt daemon.
type App struct {
	cfg *model.AppConfig
	log zerolog.Logger

	store     *store.SQLiteStore
	tray      tray.Tray
	sink      telemetry.Sink
	closeSink func() error
	presenter *presenter.Presenter
	handler   *reconcile.Handler
	runner    *reconcile.Runner
	scheduler *schedule.Scheduler
	quest     *quest.Loader

	// degraded is set when notification permission was denied.
	degraded bool
}

// New opens the store and builds every component from cfg.
func New(cfg *model.AppConfig, log zerolog.Logger, opts Options) (*App, error) {
	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a, err := build(cfg, log, s, opts)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *model.AppConfig, log zerolog.Logger, s *store.SQLiteStore, opts Options) (*App, error) {
	ctx := context.Background()

	ring := opts.Keyring
	if ring == nil {
		var err error
		if ring, err = credential.Open(); err != nil {
			return nil, err
		}
	}

	if opts.Reset {
		if err := s.Reset(ctx); err != nil {
			return nil, fmt.Errorf("resetting store: %w", err)
		}
		if err := credential.ForgetInstallSecret(ring); err != nil {
			return nil, fmt.Errorf("resetting install secret: %w", err)
		}
		log.Info().Msg("store and install secret reset")
	}

	secret, err := credential.InstallSecret(ring)
	if err != nil {
		return nil, err
	}
	masker, err := mask.New(secret)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Device.Location()
	if err != nil {
		return nil, err
	}
	schedOpts := []schedule.Option{schedule.WithLocation(loc)}
	if cfg.Device.NotificationTitle != "" {
		schedOpts = append(schedOpts, schedule.WithTitle(cfg.Device.NotificationTitle))
	}

	sink, closeSink, err := openSink(cfg.Telemetry, log)
	if err != nil {
		return nil, err
	}

	t := opts.Tray
	if t == nil {
		t = tray.NewMemory(true)
	}

	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	handler := reconcile.New(s, t, masker, sink, log,
		reconcile.WithNavigator(NewWriterNavigator(out)))
	p := presenter.New(s, t, log)

	return &App{
		cfg:       cfg,
		log:       log.With().Str("component", "app").Logger(),
		store:     s,
		tray:      t,
		sink:      sink,
		closeSink: closeSink,
		presenter: p,
		handler:   handler,
		runner:    reconcile.NewRunner(handler, log),
		scheduler: schedule.New(s, p, log, schedOpts...),
		quest:     quest.NewLoader(s, log),
	}, nil
}

func openSink(cfg model.TelemetryConfig, log zerolog.Logger) (telemetry.Sink, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.Sink {
	case model.SinkNATS:
		sink, err := telemetry.DialNATS(cfg.NATSURL, cfg.Subject)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case model.SinkNone:
		return telemetry.Nop{}, noClose, nil
	default:
		return telemetry.NewLogSink(log), noClose, nil
	}
}

// Start asks for notification permission, registers categories, imports
// the configured quest and starts the scheduler. A denied permission is
// logged and the app keeps recording answers without presenting anything.
func (a *App) Start(ctx context.Context) error {
	if err := a.tray.RequestPermission(ctx); err != nil {
		if !errors.Is(err, tray.ErrPermissionDenied) {
			return fmt.Errorf("requesting notification permission: %w", err)
		}
		a.degraded = true
		a.log.Warn().Msg("notification permission denied, prompts will not be presented")
	}

	if err := a.tray.RegisterCategories(ctx, model.Categories(a.cfg.Device.Platform)); err != nil {
		return fmt.Errorf("registering categories: %w", err)
	}

	if a.cfg.Quest.Path != "" {
		if _, err := a.quest.ImportFile(ctx, a.cfg.Quest.Path); err != nil {
			return err
		}
	}

	if !a.degraded {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
	}

	if err := a.sink.Track(ctx, telemetry.Event{Name: telemetry.EventAppStarted, Time: time.Now()}); err != nil {
		a.log.Warn().Err(err).Msg("tracking app start")
	}
	a.log.Info().Bool("degraded", a.degraded).Msg("started")
	return nil
}

// Run processes interaction events until ctx is done or events closes.
func (a *App) Run(ctx context.Context, events <-chan model.InteractionEvent) error {
	return a.runner.Run(ctx, events)
}

// Handler returns the interaction handler.
func (a *App) Handler() *reconcile.Handler { return a.handler }

// Presenter returns the presenter that owns the tray.
func (a *App) Presenter() *presenter.Presenter { return a.presenter }

// Tray returns the notification surface.
func (a *App) Tray() tray.Tray { return a.tray }

// Store returns the durable store.
func (a *App) Store() store.Store { return a.store }

// Stop stops the scheduler and releases the sink and the store.
func (a *App) Stop(ctx context.Context) error {
	if !a.degraded {
		a.scheduler.Stop(ctx)
	}
	return errors.Join(a.closeSink(), a.store.Close())
}

// WriterNavigator reports deferred entries as JSON lines on a writer, where
// the entry screen picks them up.
type WriterNavigator struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterNavigator creates a WriterNavigator.
func NewWriterNavigator(w io.Writer) *WriterNavigator {
	return &WriterNavigator{enc: json.NewEncoder(w)}
}

// OpenPromptEntry implements reconcile.Navigator.
func (n *WriterNavigator) OpenPromptEntry(ctx context.Context, promptUUID string, triggerTimestamp int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.enc.Encode(struct {
		Screen           string `json:"screen"`
		PromptUUID       string `json:"promptUuid"`
		TriggerTimestamp int64  `json:"triggerTimestamp"`
	}{"PromptEntry", promptUUID, triggerTimestamp})
}
