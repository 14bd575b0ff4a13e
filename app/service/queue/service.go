package queue

import (
	"docchat/app/config"
	"docchat/app/service/conversation"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

var (
	ErrQueueFull = errors.New("turn queue is full")
	ErrClosed    = errors.New("turn queue is closed")
)

// Job is one pending turn. Exactly one Result is sent on Reply.
type Job struct {
	SessionID    string
	UserText     *string
	DocumentPath *string
	Reply        chan Result
}

type Result struct {
	State conversation.State
	// Added holds the messages appended to history by this turn.
	Added []conversation.Message
	Err   error
}

type Service struct {
	queue chan Job

	mu     sync.RWMutex
	closed bool
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Engine.QueueSize), nil
}

func NewService(size int) *Service {
	return &Service{
		queue: make(chan Job, size),
	}
}

// Add enqueues a turn and returns the channel its result arrives on.
// It never blocks: a full queue is reported as ErrQueueFull.
func (s *Service) Add(sessionID string, userText, documentPath *string) (<-chan Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	job := Job{
		SessionID:    sessionID,
		UserText:     userText,
		DocumentPath: documentPath,
		Reply:        make(chan Result, 1),
	}

	select {
	case s.queue <- job:
		return job.Reply, nil
	default:
		slog.Warn("turn queue is full", "session_id", sessionID)
		return nil, ErrQueueFull
	}
}

func (s *Service) Channel() <-chan Job {
	return s.queue
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.queue)
	}

	return nil
}
