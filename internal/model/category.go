package model

// Platform identifies the device OS family.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// CategoryAction is one button on a notification category.
type CategoryAction struct {
	ID                   string `json:"identifier"`
	ButtonTitle          string `json:"buttonTitle"`
	OpensAppToForeground bool   `json:"opensAppToForeground"`

	// TextInput is set for actions that accept inline text.
	TextInput *TextInput `json:"textInput,omitempty"`
}

// TextInput configures an inline reply field.
type TextInput struct {
	SubmitButtonTitle string `json:"submitButtonTitle"`
	Placeholder       string `json:"placeholder"`
}

// Category is a notification category registered with the OS.
type Category struct {
	ID      ResponseType     `json:"identifier"`
	Actions []CategoryAction `json:"actions"`
}

// Categories returns the notification categories for every response type.
// Android renders placeholders incorrectly, so they are left empty there.
func Categories(platform Platform) []Category {
	numberPlaceholder, textPlaceholder := "", ""
	if platform != PlatformAndroid {
		numberPlaceholder = "Enter a number"
		textPlaceholder = "Type your response here"
	}

	return []Category{
		{
			ID: ResponseTypeYesNo,
			Actions: []CategoryAction{
				{ID: AnswerYes, ButtonTitle: AnswerYes},
				{ID: AnswerNo, ButtonTitle: AnswerNo},
			},
		},
		{
			ID: ResponseTypeNumber,
			Actions: []CategoryAction{{
				ID:          string(ResponseTypeNumber),
				ButtonTitle: "Respond",
				TextInput: &TextInput{
					SubmitButtonTitle: "Log",
					Placeholder:       numberPlaceholder,
				},
			}},
		},
		{
			ID: ResponseTypeText,
			Actions: []CategoryAction{{
				ID:          string(ResponseTypeText),
				ButtonTitle: "Respond",
				TextInput: &TextInput{
					SubmitButtonTitle: "Log",
					Placeholder:       textPlaceholder,
				},
			}},
		},
	}
}
