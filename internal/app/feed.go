package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/store"
	"github.com/nhle/fusion-prompts/internal/tray"
)

// Command kinds accepted by Feed.
const (
	CommandTap     = "tap"
	CommandEntry   = "entry"
	CommandArrival = "arrival"
	CommandFire    = "fire"
	CommandSwipe   = "swipe"
)

// Command is one line of simulated device input.
type Command struct {
	Type             string             `json:"type"`
	NotificationID   string             `json:"notificationId,omitempty"`
	ActionID         string             `json:"actionId,omitempty"`
	UserText         string             `json:"userText,omitempty"`
	Category         model.ResponseType `json:"category,omitempty"`
	PresentedAt      int64              `json:"presentedAt,omitempty"`
	PromptUUID       string             `json:"promptUuid,omitempty"`
	TriggerTimestamp int64              `json:"triggerTimestamp,omitempty"`
	Value            string             `json:"value,omitempty"`
}

// Feed reads JSON-line commands from r until EOF or ctx is done. Taps are
// turned into interaction events and sent on events; the other commands are
// applied directly. Malformed or failing lines are logged and skipped.
func (a *App) Feed(ctx context.Context, r io.Reader, events chan<- model.InteractionEvent) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			a.log.Warn().Err(err).Msg("decoding command")
			continue
		}

		if cmd.Type == CommandTap {
			event, err := a.interaction(ctx, cmd)
			if err != nil {
				a.log.Warn().Err(err).Msg("building interaction")
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if err := a.apply(ctx, cmd); err != nil {
			a.log.Warn().Err(err).Str("type", cmd.Type).Msg("applying command")
		}
	}
	return scanner.Err()
}

func (a *App) apply(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandEntry:
		_, err := a.handler.SubmitEntry(ctx, cmd.PromptUUID, cmd.TriggerTimestamp, cmd.Value)
		return err
	case CommandArrival:
		decision, err := a.presenter.HandleArrival(ctx, cmd.NotificationID)
		if err != nil {
			return err
		}
		a.log.Debug().
			Str("notification", cmd.NotificationID).
			Bool("alert", decision.ShowAlert).
			Msg("arrival")
		return nil
	case CommandFire:
		return a.scheduler.Fire(ctx, cmd.PromptUUID)
	case CommandSwipe:
		m, ok := a.tray.(*tray.Memory)
		if !ok {
			return fmt.Errorf("swipe is only supported on the in-memory tray")
		}
		m.Swipe(cmd.NotificationID)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// interaction fills the category and presentation time of a tap that leaves
// them out, first from the tray and then from the notification's record. A
// redelivered tap on a notification that was already dismissed still gets
// its original trigger time that way, so it deduplicates. Taps on unknown
// notifications pass through for the handler to drop.
func (a *App) interaction(ctx context.Context, cmd Command) (model.InteractionEvent, error) {
	if cmd.NotificationID == "" {
		return model.InteractionEvent{}, fmt.Errorf("tap without notification id")
	}
	actionID := cmd.ActionID
	if actionID == "" {
		actionID = model.DefaultActionID
	}

	event := model.InteractionEvent{
		ActionID:       actionID,
		NotificationID: cmd.NotificationID,
		Category:       cmd.Category,
		UserText:       cmd.UserText,
	}
	if cmd.PresentedAt != 0 {
		event.PresentedAt = time.Unix(cmd.PresentedAt, 0)
	}
	complete := func() bool { return event.Category != "" && !event.PresentedAt.IsZero() }
	if complete() {
		return event, nil
	}

	presented, err := a.tray.Presented(ctx)
	if err != nil {
		return model.InteractionEvent{}, err
	}
	for _, n := range presented {
		if n.ID != cmd.NotificationID {
			continue
		}
		if event.Category == "" {
			event.Category = n.Category
		}
		if event.PresentedAt.IsZero() {
			event.PresentedAt = n.PresentedAt
		}
	}
	if complete() {
		return event, nil
	}

	issued, err := a.store.GetIssuedNotification(ctx, cmd.NotificationID)
	if errors.Is(err, store.ErrNotFound) {
		return event, nil
	}
	if err != nil {
		return model.InteractionEvent{}, err
	}
	if event.PresentedAt.IsZero() {
		if issued.PresentedAt == 0 {
			return model.InteractionEvent{}, fmt.Errorf("notification %s has no presentation time", cmd.NotificationID)
		}
		event.PresentedAt = time.Unix(issued.PresentedAt, 0)
	}
	if event.Category == "" {
		p, err := a.store.GetPrompt(ctx, issued.PromptUUID)
		if err != nil {
			return model.InteractionEvent{}, fmt.Errorf("category of notification %s: %w", cmd.NotificationID, err)
		}
		event.Category = p.ResponseType
	}
	return event, nil
}
