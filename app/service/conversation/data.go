package conversation

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// State is the whole conversation of one session. The caller owns it between
// turns and hands it to Controller.RunTurn by value.
type State struct {
	History          []Message `json:"history"`
	DocumentText     *string   `json:"document_text,omitempty"`
	LastDocumentName *string   `json:"last_document_name,omitempty"`

	// Only set while a turn is running.
	PendingUserInput    *string `json:"-"`
	PendingDocumentPath *string `json:"-"`
}

// TurnInput is what a front end supplies for one turn. Nil means absent.
type TurnInput struct {
	UserText     *string `validate:"omitnil,min=1"`
	DocumentPath *string `validate:"omitnil,min=1"`
}

// TurnOutput is the partial update produced by one turn.
type TurnOutput struct {
	NewMessages []Message

	// Ingested reports whether the turn attempted ingestion. Only then do
	// DocumentText and LastDocumentName replace the previous values.
	Ingested         bool
	DocumentText     *string
	LastDocumentName *string
}
