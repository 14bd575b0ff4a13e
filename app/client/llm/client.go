package llm

import (
	"context"
	"docchat/app/config"
	"docchat/app/service/conversation"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	codeUnavailable = "llm_unavailable"
	codeRejected    = "llm_rejected"
	codeTimeout     = "llm_timeout"

	probeTimeout = 15 * time.Second
)

var (
	ErrUnavailable = errors.New("language model service unavailable")
	ErrRejected    = errors.New("language model rejected the request")
	ErrTimeout     = errors.New("language model request timed out")
)

type Client struct {
	model       llms.Model
	modelName   string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func New(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	model, err := openai.New(
		openai.WithToken(cfg.Model.Token),
		openai.WithBaseURL(cfg.Model.BaseURL),
		openai.WithModel(cfg.Model.Model),
		openai.WithHTTPClient(&http.Client{
			Timeout: cfg.Model.Timeout,
		}),
		openai.WithCallback(LogCallbackHandler{}),
	)
	if err != nil {
		return nil, oops.In("llm").Errorf("failed to create openai client: %w", err)
	}

	return NewClient(model, cfg.Model), nil
}

func NewClient(model llms.Model, cfg config.Model) *Client {
	return &Client{
		model:       model,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}
}

// Generate sends the ordered messages to the model and returns the reply text.
// Errors match ErrUnavailable, ErrRejected or ErrTimeout.
func (c *Client) Generate(ctx context.Context, messages []conversation.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	options := []llms.CallOption{
		llms.WithTemperature(c.temperature),
	}
	if c.maxTokens > 0 {
		options = append(options, llms.WithMaxTokens(c.maxTokens))
	}

	start := time.Now()

	resp, err := c.model.GenerateContent(ctx, pie.Map(messages, toMessageContent), options...)
	if err != nil {
		return "", c.wrap(classify(ctx, err), err)
	}

	if len(resp.Choices) == 0 {
		return "", c.wrap(ErrRejected, errors.New("no choices in response"))
	}

	slog.DebugContext(ctx, "Generated response",
		"model", c.modelName,
		"messages", len(messages),
		"duration", time.Since(start),
	)

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// Probe checks that the model answers at all.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, err := c.Generate(ctx, []conversation.Message{conversation.UserMessage("Hello")})
	return err
}

func (c *Client) wrap(kind, err error) error {
	code := codeRejected
	switch kind {
	case ErrUnavailable:
		code = codeUnavailable
	case ErrTimeout:
		code = codeTimeout
	}

	return oops.
		In("llm").
		Code(code).
		With("model", c.modelName).
		Wrapf(fmt.Errorf("%w: %w", kind, err), "generation failed")
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) || errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}

	return ErrRejected
}

func toMessageContent(msg conversation.Message) llms.MessageContent {
	role := llms.ChatMessageTypeHuman
	switch msg.Role {
	case conversation.RoleSystem:
		role = llms.ChatMessageTypeSystem
	case conversation.RoleAssistant:
		role = llms.ChatMessageTypeAI
	}

	return llms.TextParts(role, msg.Content)
}
