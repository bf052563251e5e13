package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/fusion-prompts/internal/model"
)

// AppendResponse inserts a new response and sets response.ID. If a response
// for the same prompt and trigger timestamp exists it returns
// ErrDuplicateResponse and writes nothing.
func (s *SQLiteStore) AppendResponse(ctx context.Context, response *model.Response) error {
	if response == nil {
		return fmt.Errorf("response must not be nil")
	}
	if strings.TrimSpace(response.PromptUUID) == "" {
		return fmt.Errorf("response prompt uuid must not be empty")
	}

	return s.withTx(ctx, "append response", func(tx *sqlx.Tx) error {
		var existing int
		err := tx.GetContext(ctx, &existing, `
			SELECT COUNT(*) FROM prompt_responses
			WHERE promptUuid = ? AND triggerTimestamp = ?`,
			response.PromptUUID, response.TriggerTimestamp,
		)
		if err != nil {
			return unavailable("checking for duplicate response", err)
		}
		if existing > 0 {
			return fmt.Errorf("prompt %s at %d: %w",
				response.PromptUUID, response.TriggerTimestamp, ErrDuplicateResponse)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO prompt_responses (
				promptUuid, triggerTimestamp, responseTimestamp, value
			) VALUES (?, ?, ?, ?)`,
			response.PromptUUID, response.TriggerTimestamp,
			response.ResponseTimestamp, response.Value,
		)
		if err != nil {
			return unavailable(fmt.Sprintf("appending response for prompt %s", response.PromptUUID), err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return unavailable("reading response id", err)
		}
		response.ID = id
		return nil
	})
}

// GetResponses retrieves responses matching the filter, oldest first.
func (s *SQLiteStore) GetResponses(
	ctx context.Context,
	filter ResponseFilter,
) ([]model.Response, error) {
	var conditions []string
	var args []interface{}

	if filter.PromptUUID != nil {
		conditions = append(conditions, "promptUuid = ?")
		args = append(args, *filter.PromptUUID)
	}
	if filter.Since != nil {
		conditions = append(conditions, "responseTimestamp >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, promptUuid, triggerTimestamp, responseTimestamp, value
		FROM prompt_responses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var responses []model.Response
	if err := s.db.SelectContext(ctx, &responses, query, args...); err != nil {
		return nil, unavailable("querying responses", err)
	}
	return responses, nil
}

// CountResponses returns the total number of recorded responses.
func (s *SQLiteStore) CountResponses(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM prompt_responses"); err != nil {
		return 0, unavailable("counting responses", err)
	}
	return count, nil
}
