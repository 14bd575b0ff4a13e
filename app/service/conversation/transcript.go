package conversation

import "github.com/elliotchance/pie/v2"

const systemPrefix = "[SYSTEM] "

// Exchange is one row of a chat display: a user line, an assistant line, or both.
type Exchange struct {
	User      *string `json:"user"`
	Assistant *string `json:"assistant"`
}

// Transcript renders history as chat rows. An assistant message completes the
// preceding unanswered user row; system messages get a row of their own.
func Transcript(history []Message) []Exchange {
	rows := make([]Exchange, 0, len(history))

	for _, msg := range history {
		content := msg.Content

		switch msg.Role {
		case RoleUser:
			rows = append(rows, Exchange{User: &content})
		case RoleAssistant:
			if n := len(rows); n > 0 && rows[n-1].User != nil && rows[n-1].Assistant == nil {
				rows[n-1].Assistant = &content
			} else {
				rows = append(rows, Exchange{Assistant: &content})
			}
		case RoleSystem:
			content = systemPrefix + content
			rows = append(rows, Exchange{Assistant: &content})
		}
	}

	return rows
}

// Replies returns the assistant answers in history order.
func Replies(history []Message) []string {
	return pie.Map(
		pie.Filter(history, func(m Message) bool { return m.Role == RoleAssistant }),
		func(m Message) string { return m.Content },
	)
}
