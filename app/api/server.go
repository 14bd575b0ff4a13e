package api

import (
	"context"
	"docchat/app/config"
	"docchat/app/service/conversation"
	"docchat/app/service/engine"
	"docchat/app/service/queue"
	"docchat/app/service/session"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Server)(nil)

const shutdownTimeout = 10 * time.Second

type TurnSubmitter interface {
	Submit(ctx context.Context, sessionID string, userText, documentPath *string) (queue.Result, error)
}

type SessionStore interface {
	Create() string
	Get(id string) (conversation.State, bool)
	Delete(id string)
	Count() int
	UploadDir(id string) string
}

type Server struct {
	// turns are bound to the application lifetime, not to a request
	ctx      context.Context
	listen   string
	app      *fiber.App
	turns    TurnSubmitter
	sessions SessionStore
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewServer(
		do.MustInvoke[context.Context](di),
		cfg.Server.Listen,
		cfg.Document.MaxUploadMB,
		do.MustInvoke[*engine.Service](di),
		do.MustInvoke[*session.Service](di),
	), nil
}

func NewServer(ctx context.Context, listen string, maxUploadMB int, turns TurnSubmitter, sessions SessionStore) *Server {
	s := &Server{
		ctx:      ctx,
		listen:   listen,
		turns:    turns,
		sessions: sessions,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// leave room for the form fields next to the document itself
		BodyLimit:    (maxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger)

	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api")
	api.Post("/sessions", s.createSession)
	api.Get("/sessions/:id", s.getSession)
	api.Delete("/sessions/:id", s.deleteSession)
	api.Post("/sessions/:id/turns", s.postTurn)

	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Warn("HTTP server shutdown failed", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "addr", s.listen)

	return s.app.Listen(s.listen)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.Is(err, session.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, conversation.ErrInvalidTurnInput):
		code = fiber.StatusBadRequest
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrClosed):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		code = fiber.StatusGatewayTimeout
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", code,
			"error", err,
		)
	}

	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	slog.Debug("Request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)

	return err
}
