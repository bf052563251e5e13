package model

import (
	"fmt"
	"strings"
)

// ResponseType identifies how a prompt expects to be answered.
type ResponseType string

const (
	ResponseTypeYesNo  ResponseType = "yesno"
	ResponseTypeNumber ResponseType = "number"
	ResponseTypeText   ResponseType = "text"
)

// Valid reports whether r is one of the known response types.
func (r ResponseType) Valid() bool {
	switch r {
	case ResponseTypeYesNo, ResponseTypeNumber, ResponseTypeText:
		return true
	}
	return false
}

// Weekday names used as keys in NotificationSchedule.Days.
var Weekdays = []string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// NotificationSchedule describes when a prompt should surface as a
// notification during a day.
type NotificationSchedule struct {
	// Days maps a weekday name (see Weekdays) to whether the prompt runs that day.
	Days map[string]bool `json:"days"`

	// StartTime and EndTime bound the daily window, formatted "HH:MM".
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`

	// CountPerDay is how many notifications to spread across the window.
	CountPerDay int `json:"countPerDay"`
}

// Prompt is a recurring question definition that surfaces as device
// notifications. Prompts are replaced as a whole, never patched.
type Prompt struct {
	// UUID is the externally issued, immutable identity of the prompt.
	UUID string `json:"uuid" db:"uuid"`

	// PromptText is the question shown in the notification body.
	PromptText string `json:"promptText" db:"promptText"`

	// ResponseType selects the notification category and answer format.
	ResponseType ResponseType `json:"responseType" db:"responseType"`

	// Schedule controls when notifications are issued.
	Schedule NotificationSchedule `json:"schedule" db:"-"`
}

// Validate checks the fields the store relies on.
func (p Prompt) Validate() error {
	if strings.TrimSpace(p.UUID) == "" {
		return fmt.Errorf("prompt uuid must not be empty")
	}
	if !p.ResponseType.Valid() {
		return fmt.Errorf("prompt %s: unknown response type %q", p.UUID, p.ResponseType)
	}
	if p.Schedule.CountPerDay < 0 {
		return fmt.Errorf("prompt %s: countPerDay must not be negative", p.UUID)
	}
	return nil
}
