package mcptools

import (
	"context"
	"docchat/app/config"
	"docchat/app/service/conversation"
	"docchat/app/service/engine"
	"docchat/app/service/queue"
	"docchat/app/service/session"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

var _ do.Shutdownable = (*Service)(nil)

const (
	serverName       = "docchat"
	serverVersion    = "1.0.0"
	defaultSessionID = "mcp"
	shutdownTimeout  = 10 * time.Second
)

type TurnSubmitter interface {
	Submit(ctx context.Context, sessionID string, userText, documentPath *string) (queue.Result, error)
}

type SessionStore interface {
	Get(id string) (conversation.State, bool)
	Ensure(id string)
}

// Service exposes conversation turns as MCP tools over SSE. Documents are
// only read from below documentRoot.
type Service struct {
	listen       string
	documentRoot string
	turns        TurnSubmitter
	sessions     SessionStore

	mcpServer *server.MCPServer
	sseServer *server.SSEServer
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	root, err := filepath.Abs(cfg.Document.UploadDir)
	if err != nil {
		return nil, oops.In("mcp").Errorf("failed to resolve document root: %w", err)
	}

	return NewService(
		cfg.MCP,
		root,
		do.MustInvoke[*engine.Service](di),
		do.MustInvoke[*session.Service](di),
	), nil
}

func NewService(cfg config.MCP, documentRoot string, turns TurnSubmitter, sessions SessionStore) *Service {
	s := &Service{
		listen:       cfg.Listen,
		documentRoot: filepath.Clean(documentRoot),
		turns:        turns,
		sessions:     sessions,
	}

	s.mcpServer = server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.mcpServer.AddTool(mcp.NewTool("chat",
		mcp.WithDescription("Send a message about a local document and get the assistant's reply. The document is only read again when its file name changes."),
		mcp.WithString("message", mcp.Description("User message")),
		mcp.WithString("document_path", mcp.Description("Path to a PDF or text document inside the server's document directory, absolute or relative to it")),
		mcp.WithString("session_id", mcp.Description("Conversation to continue"), mcp.DefaultString(defaultSessionID)),
	), s.handleChat)

	s.mcpServer.AddTool(mcp.NewTool("transcript",
		mcp.WithDescription("Show the whole conversation of a session"),
		mcp.WithString("session_id", mcp.Description("Conversation to show"), mcp.DefaultString(defaultSessionID)),
	), s.handleTranscript)

	opts := make([]server.SSEOption, 0, 1)
	if cfg.BaseURL != "" {
		opts = append(opts, server.WithBaseURL(cfg.BaseURL))
	}
	s.sseServer = server.NewSSEServer(s.mcpServer, opts...)

	return s
}

// Run serves SSE until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			slog.Warn("MCP server shutdown failed", "error", err)
		}
	}()

	slog.Info("MCP server listening", "addr", s.listen)

	if err := s.sseServer.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Service) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.sseServer.Shutdown(ctx)
}

func (s *Service) handleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", defaultSessionID)
	if !session.ValidID(sessionID) {
		return mcp.NewToolResultError("invalid session_id"), nil
	}

	userText := lo.EmptyableToPtr(strings.TrimSpace(req.GetString("message", "")))

	var documentPath *string
	if raw := strings.TrimSpace(req.GetString("document_path", "")); raw != "" {
		path, ok := s.resolveDocument(raw)
		if !ok {
			slog.Warn("MCP chat rejected document path", "session_id", sessionID, "path", raw)
			return mcp.NewToolResultError("document_path must be inside " + s.documentRoot), nil
		}
		documentPath = &path
	}

	s.sessions.Ensure(sessionID)

	res, err := s.turns.Submit(ctx, sessionID, userText, documentPath)
	if err != nil {
		slog.Warn("MCP chat failed", "session_id", sessionID, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(res.Added) == 0 {
		return mcp.NewToolResultText("Nothing to do: send a message or a document."), nil
	}

	return mcp.NewToolResultText(formatMessages(res.Added)), nil
}

func (s *Service) handleTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", defaultSessionID)

	state, ok := s.sessions.Get(sessionID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", sessionID)), nil
	}

	return mcp.NewToolResultText(formatTranscript(conversation.Transcript(state.History))), nil
}

// resolveDocument cleans path, resolving relative paths against the document
// root, and reports whether the result stays below the root.
func (s *Service) resolveDocument(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.documentRoot, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(s.documentRoot, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return path, true
}

func formatMessages(messages []conversation.Message) string {
	return strings.Join(pie.Map(messages, func(m conversation.Message) string {
		return fmt.Sprintf("%s: %s", m.Role, m.Content)
	}), "\n\n")
}

func formatTranscript(rows []conversation.Exchange) string {
	if len(rows) == 0 {
		return "(empty conversation)"
	}

	var sb strings.Builder
	for i, row := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		if row.User != nil {
			sb.WriteString("User: " + *row.User + "\n")
		}
		if row.Assistant != nil {
			sb.WriteString("Assistant: " + *row.Assistant + "\n")
		}
	}

	return strings.TrimSpace(sb.String())
}
