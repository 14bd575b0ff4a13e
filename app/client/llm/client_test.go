package llm

import (
	"context"
	"docchat/app/config"
	"docchat/app/service/conversation"
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubModel struct {
	generateFunc func(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error)
	messages     []llms.MessageContent
	options      llms.CallOptions
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, opt := range options {
		opt(&m.options)
	}

	if m.generateFunc != nil {
		return m.generateFunc(ctx, messages)
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "  stub reply \n"}},
	}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func testConfig() config.Model {
	return config.Model{
		Model:       "gpt-4o-mini",
		Temperature: 0,
		MaxTokens:   256,
		Timeout:     time.Second,
	}
}

func TestGenerate_MapsRolesAndOptions(t *testing.T) {
	model := &stubModel{}
	client := NewClient(model, testConfig())

	reply, err := client.Generate(context.Background(), []conversation.Message{
		conversation.SystemMessage("be concise"),
		conversation.UserMessage("hi"),
		conversation.AssistantMessage("hello"),
		conversation.UserMessage("what now?"),
	})
	require.NoError(t, err)
	assert.Equal(t, "stub reply", reply)

	require.Len(t, model.messages, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[3].Role)
	assert.Equal(t, llms.TextContent{Text: "what now?"}, model.messages[3].Parts[0])

	assert.Equal(t, 0.0, model.options.Temperature)
	assert.Equal(t, 256, model.options.MaxTokens)
}

func TestGenerate_NoChoices(t *testing.T) {
	model := &stubModel{
		generateFunc: func(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error) {
			return &llms.ContentResponse{}, nil
		},
	}

	_, err := NewClient(model, testConfig()).Generate(context.Background(), []conversation.Message{conversation.UserMessage("hi")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestGenerate_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"connection refused", &url.Error{Op: "Post", URL: "http://localhost", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, ErrUnavailable},
		{"api error", errors.New("API returned unexpected status code: 400"), ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &stubModel{
				generateFunc: func(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error) {
					return nil, tt.err
				},
			}

			_, err := NewClient(model, testConfig()).Generate(context.Background(), []conversation.Message{conversation.UserMessage("hi")})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestGenerate_AppliesTimeout(t *testing.T) {
	model := &stubModel{
		generateFunc: func(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond

	_, err := NewClient(model, cfg).Generate(context.Background(), []conversation.Message{conversation.UserMessage("hi")})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestProbe(t *testing.T) {
	model := &stubModel{}
	require.NoError(t, NewClient(model, testConfig()).Probe(context.Background()))

	require.Len(t, model.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[0].Role)
}
