package conversation

import (
	"strings"

	_ "embed"

	"github.com/samber/lo"
)

//go:embed instruction_prompt.txt
var instructionPrompt string

//go:embed document_context_template.txt
var documentContextTemplate string

const (
	truncatedMarker     = "\n... (content truncated)"
	unknownDocumentName = "current document"
)

// buildRequest assembles the messages sent to the generator: instructions,
// optional document context, the history so far and the new user message.
func buildRequest(state State, userText string, contextMaxChars int) []Message {
	request := make([]Message, 0, len(state.History)+3)

	request = append(request, SystemMessage(strings.TrimSpace(instructionPrompt)))

	if state.DocumentText != nil && *state.DocumentText != "" {
		request = append(request, SystemMessage(documentContext(
			lo.FromPtrOr(state.LastDocumentName, unknownDocumentName),
			*state.DocumentText,
			contextMaxChars,
		)))
	}

	request = append(request, state.History...)
	request = append(request, UserMessage(userText))

	return request
}

func documentContext(name, text string, maxChars int) string {
	text, truncated := truncateRunes(text, maxChars)

	// Single pass, so placeholders inside the document text stay as they are.
	replacer := strings.NewReplacer(
		"{document_name}", name,
		"{document_text}", text,
		"{truncated}", lo.Ternary(truncated, truncatedMarker, ""),
	)

	return replacer.Replace(strings.TrimSpace(documentContextTemplate))
}

// truncateRunes keeps the first maxChars characters of text.
func truncateRunes(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || len(text) <= maxChars {
		return text, false
	}

	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i], true
		}
		count++
	}

	return text, false
}
