package conversation

import (
	"context"
	"docchat/app/config"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// FallbackReply replaces the assistant answer when generation fails.
const FallbackReply = "Sorry, I had a problem generating a response. Please check that the language model service is available."

const (
	ingestedTemplate     = "Ingested document %s. Its content is available for questions."
	ingestFailedTemplate = "Could not ingest document %s: %s"
)

var (
	ErrInvalidTurnInput = errors.New("invalid turn input")

	errEmptyDocument = errors.New("no text could be extracted from the document")
	errEmptyReply    = errors.New("model returned an empty reply")
)

type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	// ContextMaxChars bounds the document text included in a generation request.
	ContextMaxChars int
}

type step int

const (
	stepStart step = iota
	stepIngest
	stepSkipToGeneration
	stepGenerate
	stepDone
)

func (s step) String() string {
	switch s {
	case stepStart:
		return "start"
	case stepIngest:
		return "ingest"
	case stepSkipToGeneration:
		return "skip_to_generation"
	case stepGenerate:
		return "generate"
	case stepDone:
		return "done"
	default:
		return "unknown"
	}
}

// turn carries one RunTurn invocation through the state machine.
type turn struct {
	prior        State
	userText     *string
	documentPath *string
	out          TurnOutput
}

// view is the state as generation sees it: prior state plus whatever this
// turn has produced so far.
func (t *turn) view() State {
	return Merge(t.prior, t.out)
}

type Controller struct {
	extractor Extractor
	generator Generator
	opts      Options
	validate  *validator.Validate
}

func New(di *do.Injector) (*Controller, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewController(
		do.MustInvoke[Extractor](di),
		do.MustInvoke[Generator](di),
		Options{ContextMaxChars: cfg.Document.ContextMaxChars},
	), nil
}

func NewController(extractor Extractor, generator Generator, opts Options) *Controller {
	return &Controller{
		extractor: extractor,
		generator: generator,
		opts:      opts,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RunTurn runs one turn to completion and returns the updated state.
// Extraction and generation failures end up in the history; the only error
// is malformed input, in which case prior is returned untouched.
func (c *Controller) RunTurn(ctx context.Context, prior State, userText, documentPath *string) (State, error) {
	input := TurnInput{
		UserText:     userText,
		DocumentPath: documentPath,
	}
	if err := c.validate.Struct(input); err != nil {
		return prior, oops.
			In("conversation").
			Code("invalid_turn_input").
			With("validation", err.Error()).
			Wrap(ErrInvalidTurnInput)
	}

	t := &turn{
		prior:        prior,
		userText:     userText,
		documentPath: documentPath,
	}

	for s := stepStart; s != stepDone; {
		next := c.advance(ctx, t, s)
		slog.DebugContext(ctx, "Turn transition", "from", s, "to", next)
		s = next
	}

	return Merge(prior, t.out), nil
}

func (c *Controller) advance(ctx context.Context, t *turn, s step) step {
	switch s {
	case stepStart:
		return c.start(t)
	case stepIngest:
		return c.ingest(ctx, t)
	case stepSkipToGeneration:
		return stepGenerate
	case stepGenerate:
		return c.generate(ctx, t)
	default:
		return stepDone
	}
}

func (c *Controller) start(t *turn) step {
	t.prior.PendingUserInput = t.userText
	t.prior.PendingDocumentPath = t.documentPath

	if Decide(t.prior, t.documentPath) == RouteIngest {
		return stepIngest
	}

	return stepSkipToGeneration
}

func (c *Controller) ingest(ctx context.Context, t *turn) step {
	path := *t.documentPath
	name := filepath.Base(path)

	slog.InfoContext(ctx, "Ingesting document", "name", name, "path", path)

	text, err := c.extractor.Extract(ctx, path)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyDocument
	}

	t.out.Ingested = true
	t.out.LastDocumentName = &name

	if err != nil {
		slog.WarnContext(ctx, "Document ingestion failed",
			"name", name,
			"error", err,
		)

		t.out.DocumentText = nil
		t.out.NewMessages = append(t.out.NewMessages, SystemMessage(fmt.Sprintf(ingestFailedTemplate, name, err)))

		return stepGenerate
	}

	slog.InfoContext(ctx, "Document ingested", "name", name, "chars", len([]rune(text)))

	t.out.DocumentText = &text
	t.out.NewMessages = append(t.out.NewMessages, SystemMessage(fmt.Sprintf(ingestedTemplate, name)))

	return stepGenerate
}

func (c *Controller) generate(ctx context.Context, t *turn) step {
	if t.userText == nil {
		return stepDone
	}

	userText := *t.userText
	request := buildRequest(t.view(), userText, c.opts.ContextMaxChars)

	reply, err := c.generator.Generate(ctx, request)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errEmptyReply
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to generate response",
			"request_messages", len(request),
			"error", err,
		)
		reply = FallbackReply
	}

	t.out.NewMessages = append(t.out.NewMessages, UserMessage(userText), AssistantMessage(reply))
	t.userText = nil

	return stepDone
}
