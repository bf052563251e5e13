package quest_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/quest"
	"github.com/nhle/fusion-prompts/tests/testutil"
)

const moodID = "6f1c1f3e-8a0b-4f63-9a43-7f4f3c2a9d10"

const questConfig = `{
  "prompts": [
    {
      "uuid": "6f1c1f3e-8a0b-4f63-9a43-7f4f3c2a9d10",
      "promptText": "Did you feel anxious today?",
      "responseType": "yesno",
      "notificationConfig_days": {"Monday": true, "Tuesday": false},
      "notificationConfig_startTime": "09:00",
      "notificationConfig_endTime": "21:00",
      "notificationConfig_countPerDay": 3,
      "additionalMeta": {"category": "mood"}
    },
    {
      "uuid": "",
      "promptText": "How many cups of coffee?",
      "responseType": "number",
      "notificationConfig_days": {"Friday": true},
      "notificationConfig_startTime": "08:00",
      "notificationConfig_endTime": "12:00",
      "notificationConfig_countPerDay": 1
    }
  ],
  "onboardingQuestions": []
}`

func TestParseObjectForm(t *testing.T) {
	prompts, err := quest.Parse(strings.NewReader(questConfig))
	require.NoError(t, err)
	require.Len(t, prompts, 2)

	assert.Equal(t, model.Prompt{
		UUID:         moodID,
		PromptText:   "Did you feel anxious today?",
		ResponseType: model.ResponseTypeYesNo,
		Schedule: model.NotificationSchedule{
			Days:        map[string]bool{"Monday": true, "Tuesday": false},
			StartTime:   "09:00",
			EndTime:     "21:00",
			CountPerDay: 3,
		},
	}, prompts[0])

	_, err = uuid.Parse(prompts[1].UUID)
	assert.NoError(t, err, "missing uuid is generated")
	assert.Equal(t, model.ResponseTypeNumber, prompts[1].ResponseType)
}

func TestParseArrayForm(t *testing.T) {
	prompts, err := quest.Parse(strings.NewReader(`
	[{"uuid": "6f1c1f3e-8a0b-4f63-9a43-7f4f3c2a9d10", "promptText": "Notes?", "responseType": "text"}]`))
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, model.ResponseTypeText, prompts[0].ResponseType)
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed json", `{"prompts": [`},
		{"bad uuid", `{"prompts": [{"uuid": "not-a-uuid", "responseType": "yesno"}]}`},
		{"unknown response type", `{"prompts": [{"responseType": "slider"}]}`},
		{"negative count", `{"prompts": [{"responseType": "text", "notificationConfig_countPerDay": -1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quest.Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestImportFileReplacesPrompts(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	testutil.SeedPrompt(t, s, moodID, model.ResponseTypeText)

	path := filepath.Join(t.TempDir(), "quest.json")
	require.NoError(t, os.WriteFile(path, []byte(questConfig), 0o600))

	l := quest.NewLoader(s, zerolog.Nop())
	prompts, err := l.ImportFile(ctx, path)
	require.NoError(t, err)
	require.Len(t, prompts, 2)

	stored, err := s.GetPrompts(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	mood, err := s.GetPrompt(ctx, moodID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseTypeYesNo, mood.ResponseType)
	assert.Equal(t, 3, mood.Schedule.CountPerDay)
}

func TestImportFileMissing(t *testing.T) {
	l := quest.NewLoader(testutil.NewTestStore(t), zerolog.Nop())
	_, err := l.ImportFile(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
