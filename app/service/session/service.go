package session

import (
	"docchat/app/config"
	"docchat/app/service/conversation"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/samber/do"
	"github.com/samber/oops"
)

var _ do.Shutdownable = (*Service)(nil)

var ErrNotFound = errors.New("session not found")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Service keeps conversation states in memory. Idle sessions expire and take
// their uploaded documents with them.
type Service struct {
	uploadDir string
	cache     *cache.Cache
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if err := os.MkdirAll(cfg.Document.UploadDir, 0755); err != nil {
		return nil, oops.In("session").Errorf("failed to create upload dir: %w", err)
	}

	return NewService(cfg.Session.TTL, cfg.Session.CleanupInterval, cfg.Document.UploadDir), nil
}

func NewService(ttl, cleanupInterval time.Duration, uploadDir string) *Service {
	s := &Service{
		uploadDir: uploadDir,
		cache:     cache.New(ttl, cleanupInterval),
	}
	s.cache.OnEvicted(s.onEvicted)

	return s
}

// ValidID reports whether id is safe to use as a session key and directory name.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func (s *Service) Create() string {
	id := uuid.NewString()
	s.cache.Set(id, conversation.State{}, cache.DefaultExpiration)

	slog.Info("Session created", "session_id", id)

	return id
}

func (s *Service) Get(id string) (conversation.State, bool) {
	if x, found := s.cache.Get(id); found {
		return x.(conversation.State), true
	}
	return conversation.State{}, false
}

// Ensure creates session id with an empty state unless it already exists.
func (s *Service) Ensure(id string) {
	if err := s.cache.Add(id, conversation.State{}, cache.DefaultExpiration); err == nil {
		slog.Info("Session created", "session_id", id)
	}
}

// Save replaces the state of an existing session and restarts its idle timer.
// A session that was deleted or has expired stays gone: ErrNotFound.
func (s *Service) Save(id string, state conversation.State) error {
	if err := s.cache.Replace(id, state, cache.DefaultExpiration); err != nil {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Delete(id string) {
	s.cache.Delete(id)
}

func (s *Service) Count() int {
	return s.cache.ItemCount()
}

// UploadDir is where documents uploaded to session id are stored.
func (s *Service) UploadDir(id string) string {
	return filepath.Join(s.uploadDir, id)
}

func (s *Service) onEvicted(id string, _ any) {
	if err := os.RemoveAll(s.UploadDir(id)); err != nil {
		slog.Warn("Failed to remove session uploads", "session_id", id, "error", err)
		return
	}

	slog.Info("Session removed", "session_id", id)
}

func (s *Service) Shutdown() error {
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}

	return nil
}
