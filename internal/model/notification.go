package model

import "time"

// IssuedNotification maps an OS-assigned notification identifier to the
// prompt it was issued for. A prompt may own many of these at once.
type IssuedNotification struct {
	ID             int64  `json:"id" db:"id"`
	PromptUUID     string `json:"promptUuid" db:"promptUuid"`
	NotificationID string `json:"notificationId" db:"notificationId"`

	// PresentedAt is the unix time the notification was shown, or 0 when
	// it was recorded without one.
	PresentedAt int64 `json:"presentedAt" db:"presentedAt"`
}

// TrayNotification is a notification as the OS tray sees it.
type TrayNotification struct {
	// ID is the OS notification identifier.
	ID string `json:"id"`

	// PromptUUID is carried when the app builds the notification; the tray
	// itself never guarantees it on read-back.
	PromptUUID string `json:"promptUuid,omitempty"`

	Title    string       `json:"title"`
	Body     string       `json:"body"`
	Category ResponseType `json:"category"`

	// PresentedAt is when the notification was surfaced to the user.
	PresentedAt time.Time `json:"presentedAt"`
}

// DefaultActionID is the action identifier the OS reports when the user taps
// the notification body instead of one of its action buttons.
const DefaultActionID = "expo.modules.notifications.actions.DEFAULT"

// InteractionEvent is a raw user interaction with a presented notification.
type InteractionEvent struct {
	// ActionID is the tapped action; for yesno categories it is the answer.
	ActionID string `json:"actionIdentifier"`

	// NotificationID identifies the notification that was interacted with.
	NotificationID string `json:"notificationId"`

	// Category is the category identifier the notification was built with.
	Category ResponseType `json:"categoryIdentifier"`

	// UserText holds the inline input for number and text categories.
	UserText string `json:"userText,omitempty"`

	// PresentedAt is when the tapped notification was surfaced.
	PresentedAt time.Time `json:"date"`
}
