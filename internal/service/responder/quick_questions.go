package responder

import "github.com/zhouzirui/profile-assistant/backend/internal/analysis/intent"

// QuickQuestion is a canned prompt offered as a one-click suggestion.
type QuickQuestion struct {
	Text     string       `json:"text"`
	Category intent.Label `json:"category"`
}

var quickQuestions = []QuickQuestion{
	{Text: "What's your experience?", Category: intent.Experience},
	{Text: "Tell me about your skills", Category: intent.Skills},
	{Text: "Show me your projects", Category: intent.Projects},
	{Text: "How can I contact you?", Category: intent.Contact},
	{Text: "Are you available for work?", Category: intent.Availability},
	{Text: "What technologies do you use?", Category: intent.Technologies},
	{Text: "Tell me about yourself", Category: intent.About},
	{Text: "What's your education?", Category: intent.Education},
}

// QuickQuestions returns the suggestion chips in display order.
func QuickQuestions() []QuickQuestion {
	return append([]QuickQuestion(nil), quickQuestions...)
}
