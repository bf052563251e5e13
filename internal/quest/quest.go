// Package quest imports prompt definitions from a quest configuration.
package quest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/store"
)

// promptConfig is a prompt as the dashboard serializes it.
type promptConfig struct {
	UUID         string          `json:"uuid"`
	PromptText   string          `json:"promptText"`
	ResponseType string          `json:"responseType"`
	Days         map[string]bool `json:"notificationConfig_days"`
	StartTime    string          `json:"notificationConfig_startTime"`
	EndTime      string          `json:"notificationConfig_endTime"`
	CountPerDay  int             `json:"notificationConfig_countPerDay"`
}

// config is the object form of a quest configuration. Older quests store
// the prompt list as the whole document instead.
type config struct {
	Prompts []promptConfig `json:"prompts"`
}

// Parse decodes a quest configuration into prompts. Prompts without a UUID
// get a fresh one; a malformed UUID is an error.
func Parse(r io.Reader) ([]model.Prompt, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading quest config: %w", err)
	}

	var raw []promptConfig
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decoding quest prompts: %w", err)
		}
	} else {
		var cfg config
		if err := json.Unmarshal(trimmed, &cfg); err != nil {
			return nil, fmt.Errorf("decoding quest config: %w", err)
		}
		raw = cfg.Prompts
	}

	prompts := make([]model.Prompt, 0, len(raw))
	for i, pc := range raw {
		p, err := pc.toPrompt()
		if err != nil {
			return nil, fmt.Errorf("prompt %d: %w", i, err)
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func (pc promptConfig) toPrompt() (model.Prompt, error) {
	id := pc.UUID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return model.Prompt{}, fmt.Errorf("invalid uuid %q: %w", id, err)
	}

	p := model.Prompt{
		UUID:         id,
		PromptText:   pc.PromptText,
		ResponseType: model.ResponseType(pc.ResponseType),
		Schedule: model.NotificationSchedule{
			Days:        pc.Days,
			StartTime:   pc.StartTime,
			EndTime:     pc.EndTime,
			CountPerDay: pc.CountPerDay,
		},
	}
	if err := p.Validate(); err != nil {
		return model.Prompt{}, err
	}
	return p, nil
}

// Loader saves quest prompts into a store.
type Loader struct {
	store store.Store
	log   zerolog.Logger
}

// NewLoader creates a Loader.
func NewLoader(s store.Store, log zerolog.Logger) *Loader {
	return &Loader{
		store: s,
		log:   log.With().Str("component", "quest").Logger(),
	}
}

// Import saves every prompt, replacing any stored prompt with the same UUID.
// It stops at the first store failure.
func (l *Loader) Import(ctx context.Context, prompts []model.Prompt) error {
	for _, p := range prompts {
		if err := l.store.SavePrompt(ctx, p); err != nil {
			return fmt.Errorf("importing prompt %s: %w", p.UUID, err)
		}
	}
	l.log.Info().Int("prompts", len(prompts)).Msg("imported quest")
	return nil
}

// ImportFile parses the quest configuration at path and imports it.
func (l *Loader) ImportFile(ctx context.Context, path string) ([]model.Prompt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening quest config: %w", err)
	}
	defer f.Close()

	prompts, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if err := l.Import(ctx, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}
