package conversation

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestTranscript(t *testing.T) {
	history := []Message{
		AssistantMessage("welcome"),
		SystemMessage("Ingested document a.pdf."),
		UserMessage("q1"),
		AssistantMessage("a1"),
		UserMessage("q2"),
		AssistantMessage("a2"),
		AssistantMessage("extra"),
	}

	expected := []Exchange{
		{Assistant: lo.ToPtr("welcome")},
		{Assistant: lo.ToPtr("[SYSTEM] Ingested document a.pdf.")},
		{User: lo.ToPtr("q1"), Assistant: lo.ToPtr("a1")},
		{User: lo.ToPtr("q2"), Assistant: lo.ToPtr("a2")},
		{Assistant: lo.ToPtr("extra")},
	}

	assert.Equal(t, expected, Transcript(history))
}

func TestTranscript_Empty(t *testing.T) {
	assert.Empty(t, Transcript(nil))
}

func TestReplies(t *testing.T) {
	history := []Message{
		SystemMessage("s"),
		UserMessage("q"),
		AssistantMessage("a1"),
		AssistantMessage("a2"),
	}

	assert.Equal(t, []string{"a1", "a2"}, Replies(history))
}
