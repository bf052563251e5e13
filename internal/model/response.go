package model

// Yes/no answer values, which double as the yesno category action ids.
const (
	AnswerYes = "Yes"
	AnswerNo  = "No"
)

// Response is a recorded answer to a prompt. Timestamps are unix seconds.
type Response struct {
	ID                int64  `json:"id" db:"id"`
	PromptUUID        string `json:"promptUuid" db:"promptUuid"`
	TriggerTimestamp  int64  `json:"triggerTimestamp" db:"triggerTimestamp"`
	ResponseTimestamp int64  `json:"responseTimestamp" db:"responseTimestamp"`
	Value             string `json:"value" db:"value"`
}
