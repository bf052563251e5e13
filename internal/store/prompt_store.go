package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/fusion-prompts/internal/model"
)

var _ Store = (*SQLiteStore)(nil)

// promptRow mirrors the prompts table; the schedule is flattened into
// notificationConfig_* columns.
type promptRow struct {
	UUID         string `db:"uuid"`
	PromptText   string `db:"promptText"`
	ResponseType string `db:"responseType"`
	Days         string `db:"notificationConfig_days"`
	StartTime    string `db:"notificationConfig_startTime"`
	EndTime      string `db:"notificationConfig_endTime"`
	CountPerDay  int    `db:"notificationConfig_countPerDay"`
}

const promptColumns = `uuid, promptText, responseType,
	notificationConfig_days, notificationConfig_startTime,
	notificationConfig_endTime, notificationConfig_countPerDay`

func (r promptRow) toModel() (model.Prompt, error) {
	p := model.Prompt{
		UUID:         r.UUID,
		PromptText:   r.PromptText,
		ResponseType: model.ResponseType(r.ResponseType),
		Schedule: model.NotificationSchedule{
			StartTime:   r.StartTime,
			EndTime:     r.EndTime,
			CountPerDay: r.CountPerDay,
		},
	}
	if r.Days != "" {
		if err := json.Unmarshal([]byte(r.Days), &p.Schedule.Days); err != nil {
			return model.Prompt{}, fmt.Errorf("unmarshaling days for prompt %s: %w", r.UUID, err)
		}
	}
	return p, nil
}

// SavePrompt inserts a prompt or fully replaces the one with the same UUID.
func (s *SQLiteStore) SavePrompt(ctx context.Context, prompt model.Prompt) error {
	if err := prompt.Validate(); err != nil {
		return err
	}

	days := prompt.Schedule.Days
	if days == nil {
		days = map[string]bool{}
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("marshaling days for prompt %s: %w", prompt.UUID, err)
	}

	return s.withTx(ctx, "save prompt", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO prompts (`+promptColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			prompt.UUID, prompt.PromptText, string(prompt.ResponseType),
			string(daysJSON), prompt.Schedule.StartTime,
			prompt.Schedule.EndTime, prompt.Schedule.CountPerDay,
		)
		if err != nil {
			return unavailable(fmt.Sprintf("saving prompt %s", prompt.UUID), err)
		}
		return nil
	})
}

// GetPrompt retrieves a single prompt by UUID. It returns ErrNotFound if no
// such prompt exists.
func (s *SQLiteStore) GetPrompt(ctx context.Context, uuid string) (*model.Prompt, error) {
	var row promptRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+promptColumns+" FROM prompts WHERE uuid = ?", uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prompt %s: %w", uuid, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("getting prompt %s", uuid), err)
	}

	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPrompts retrieves all prompts ordered by UUID.
func (s *SQLiteStore) GetPrompts(ctx context.Context) ([]model.Prompt, error) {
	var rows []promptRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+promptColumns+" FROM prompts ORDER BY uuid")
	if err != nil {
		return nil, unavailable("querying prompts", err)
	}

	prompts := make([]model.Prompt, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}
