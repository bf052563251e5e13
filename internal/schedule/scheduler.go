package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/store"
)

// DefaultTitle is the notification title used when none is configured.
const DefaultTitle = "Fusion"

// Presenter shows a notification for a prompt.
type Presenter interface {
	Present(ctx context.Context, n model.TrayNotification) error
}

// Scheduler registers one cron entry per scheduled prompt and presents a
// fresh notification each time an entry fires. Prompts are re-read from the
// store every midnight.
type Scheduler struct {
	store     store.Store
	presenter Presenter
	log       zerolog.Logger
	title     string
	now       func() time.Time
	newID     func() string

	mu      sync.Mutex
	c       *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the time zone schedules are planned in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.c = cron.New(cron.WithLocation(loc)) }
}

// WithTitle sets the notification title.
func WithTitle(title string) Option {
	return func(s *Scheduler) { s.title = title }
}

// WithClock overrides the clock stamped on presented notifications.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler. It does nothing until Start is called.
func New(s store.Store, p Presenter, log zerolog.Logger, opts ...Option) *Scheduler {
	sc := &Scheduler{
		store:     s,
		presenter: p,
		log:       log.With().Str("component", "schedule").Logger(),
		title:     DefaultTitle,
		now:       time.Now,
		newID:     uuid.NewString,
		c:         cron.New(),
		entries:   make(map[string]cron.EntryID),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Start syncs prompts from the store and starts firing. Jobs run with ctx
// until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.Sync(ctx); err != nil {
		return err
	}
	if _, err := s.c.AddFunc("@daily", func() {
		if err := s.Sync(s.jobContext()); err != nil {
			s.log.Error().Err(err).Msg("daily resync")
		}
	}); err != nil {
		return fmt.Errorf("scheduling daily resync: %w", err)
	}

	s.c.Start()
	s.log.Info().Int("prompts", s.Len()).Msg("scheduler started")
	return nil
}

// Stop stops firing and waits for running jobs, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info().Msg("scheduler stopped")
}

// Sync replaces every prompt entry with the prompts currently stored.
// Prompts whose schedule cannot be planned are logged and skipped.
func (s *Scheduler) Sync(ctx context.Context) error {
	prompts, err := s.store.GetPrompts(ctx)
	if err != nil {
		return fmt.Errorf("loading prompts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		s.c.Remove(entry)
		delete(s.entries, id)
	}

	for _, p := range prompts {
		if p.Schedule.CountPerDay <= 0 {
			continue
		}
		if _, err := Plan(p.Schedule, s.now()); err != nil {
			s.log.Warn().Err(err).Str("prompt", p.UUID).Msg("skipping unschedulable prompt")
			continue
		}
		promptUUID := p.UUID
		s.entries[promptUUID] = s.c.Schedule(promptSchedule{sched: p.Schedule}, cron.FuncJob(func() {
			if err := s.Fire(s.jobContext(), promptUUID); err != nil {
				s.log.Error().Err(err).Str("prompt", promptUUID).Msg("presenting prompt")
			}
		}))
	}
	return nil
}

// Len returns the number of prompts with a cron entry.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Next returns when the prompt fires next, or false if it is not scheduled.
func (s *Scheduler) Next(promptUUID string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[promptUUID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.c.Entry(id)
	return entry.Schedule.Next(s.now()), true
}

// Fire presents a new notification for the prompt now. The presenter takes
// care of retiring the prompt's earlier notifications.
func (s *Scheduler) Fire(ctx context.Context, promptUUID string) error {
	p, err := s.store.GetPrompt(ctx, promptUUID)
	if err != nil {
		return err
	}

	n := model.TrayNotification{
		ID:          s.newID(),
		PromptUUID:  p.UUID,
		Title:       s.title,
		Body:        p.PromptText,
		Category:    p.ResponseType,
		PresentedAt: s.now(),
	}
	if err := s.presenter.Present(ctx, n); err != nil {
		return err
	}
	s.log.Debug().Str("prompt", p.UUID).Str("notification", n.ID).Msg("presented prompt")
	return nil
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
