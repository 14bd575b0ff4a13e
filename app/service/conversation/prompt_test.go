package conversation

import (
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	text, truncated := truncateRunes("hello", 10)
	assert.Equal(t, "hello", text)
	assert.False(t, truncated)

	text, truncated = truncateRunes("hello world", 5)
	assert.Equal(t, "hello", text)
	assert.True(t, truncated)

	text, truncated = truncateRunes("привет мир", 6)
	assert.Equal(t, "привет", text)
	assert.True(t, truncated)

	text, truncated = truncateRunes("äöü", 3)
	assert.Equal(t, "äöü", text)
	assert.False(t, truncated)
}

func TestBuildRequest_NoDocument(t *testing.T) {
	state := State{
		History: []Message{UserMessage("q1"), AssistantMessage("a1")},
	}

	request := buildRequest(state, "q2", 2000)

	require.Len(t, request, 4)
	assert.Equal(t, RoleSystem, request[0].Role)
	assert.Contains(t, request[0].Content, "concisely")
	assert.Equal(t, UserMessage("q1"), request[1])
	assert.Equal(t, AssistantMessage("a1"), request[2])
	assert.Equal(t, UserMessage("q2"), request[3])
}

func TestBuildRequest_TruncatesDocument(t *testing.T) {
	state := State{
		DocumentText:     lo.ToPtr(strings.Repeat("a", 50) + strings.Repeat("b", 50)),
		LastDocumentName: lo.ToPtr("long.pdf"),
	}

	request := buildRequest(state, "summarize", 50)

	require.Len(t, request, 3)
	context := request[1]
	assert.Equal(t, RoleSystem, context.Role)
	assert.Contains(t, context.Content, "'long.pdf'")
	assert.Contains(t, context.Content, strings.Repeat("a", 50))
	assert.NotContains(t, context.Content, "b")
	assert.Contains(t, context.Content, "content truncated")
}

func TestBuildRequest_ShortDocumentNotMarked(t *testing.T) {
	state := State{
		DocumentText:     lo.ToPtr("Revenue grew 5%. {document_name}"),
		LastDocumentName: lo.ToPtr("report.pdf"),
	}

	request := buildRequest(state, "hi", 2000)

	require.Len(t, request, 3)
	assert.Contains(t, request[1].Content, "Revenue grew 5%. {document_name}")
	assert.NotContains(t, request[1].Content, "truncated")
}
