package engine

import (
	"context"
	"docchat/app/service/conversation"
	"docchat/app/service/queue"
	"docchat/app/service/session"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/do"
)

type TurnRunner interface {
	RunTurn(ctx context.Context, prior conversation.State, userText, documentPath *string) (conversation.State, error)
}

type StateStore interface {
	Get(id string) (conversation.State, bool)
	Save(id string, state conversation.State) error
}

// Service runs queued turns one at a time, so a session's state is never
// touched by two turns at once.
type Service struct {
	controller TurnRunner
	sessions   StateStore
	queueSvc   *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*conversation.Controller](di),
		do.MustInvoke[*session.Service](di),
		do.MustInvoke[*queue.Service](di),
	), nil
}

func NewService(controller TurnRunner, sessions StateStore, queueSvc *queue.Service) *Service {
	return &Service{
		controller: controller,
		sessions:   sessions,
		queueSvc:   queueSvc,
	}
}

// Run processes queued turns until ctx is done. On exit the queue is closed
// and every job still waiting in it is answered with queue.ErrClosed.
func (s *Service) Run(ctx context.Context) {
	defer s.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.queueSvc.Channel():
			if !ok {
				return
			}

			if ctx.Err() != nil {
				job.Reply <- queue.Result{Err: queue.ErrClosed}
				return
			}

			job.Reply <- s.process(ctx, job)
		}
	}
}

func (s *Service) stop() {
	_ = s.queueSvc.Shutdown()

	dropped := 0
	for job := range s.queueSvc.Channel() {
		job.Reply <- queue.Result{Err: queue.ErrClosed}
		dropped++
	}

	slog.Info("Turn engine stopped", "dropped", dropped)
}

// Submit queues a turn and waits for its result. A turn that already started
// runs to completion even if ctx ends first.
func (s *Service) Submit(ctx context.Context, sessionID string, userText, documentPath *string) (queue.Result, error) {
	reply, err := s.queueSvc.Add(sessionID, userText, documentPath)
	if err != nil {
		return queue.Result{}, err
	}

	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return queue.Result{}, ctx.Err()
	}
}

func (s *Service) process(ctx context.Context, job queue.Job) queue.Result {
	start := time.Now()

	prior, found := s.sessions.Get(job.SessionID)
	if !found {
		slog.Warn("Dropped turn for missing session", "session_id", job.SessionID)
		return queue.Result{Err: session.ErrNotFound}
	}

	next, err := s.controller.RunTurn(ctx, prior, job.UserText, job.DocumentPath)
	if err != nil {
		slog.Warn("Rejected turn", "session_id", job.SessionID, "error", err)
		return queue.Result{State: prior, Err: err}
	}

	if err = s.sessions.Save(job.SessionID, next); err != nil {
		slog.Warn("Session removed during turn", "session_id", job.SessionID)
		return queue.Result{Err: err}
	}

	added := slices.Clone(next.History[len(prior.History):])

	slog.Info("Processed turn",
		"session_id", job.SessionID,
		"added", len(added),
		"history", len(next.History),
		"duration", time.Since(start),
	)

	return queue.Result{
		State: next,
		Added: added,
	}
}
