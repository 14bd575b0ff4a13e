package api

import (
	"docchat/app/service/conversation"
	"docchat/app/service/session"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/valyala/fasthttp"
)

type sessionView struct {
	SessionID        string                  `json:"session_id"`
	LastDocumentName *string                 `json:"last_document_name"`
	DocumentChars    int                     `json:"document_chars"`
	History          []conversation.Message  `json:"history"`
	Transcript       []conversation.Exchange `json:"transcript"`
}

type turnView struct {
	sessionView
	Added   []conversation.Message `json:"added"`
	Replies []string               `json:"replies"`
}

func newSessionView(id string, state conversation.State) sessionView {
	return sessionView{
		SessionID:        id,
		LastDocumentName: state.LastDocumentName,
		DocumentChars:    len([]rune(lo.FromPtr(state.DocumentText))),
		History:          lo.Ternary(state.History == nil, []conversation.Message{}, state.History),
		Transcript:       conversation.Transcript(state.History),
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) createSession(c *fiber.Ctx) error {
	id := s.sessions.Create()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session_id": id})
}

func (s *Server) getSession(c *fiber.Ctx) error {
	id, state, err := s.lookup(c)
	if err != nil {
		return err
	}

	return c.JSON(newSessionView(id, state))
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	id, _, err := s.lookup(c)
	if err != nil {
		return err
	}

	s.sessions.Delete(id)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) postTurn(c *fiber.Ctx) error {
	id, _, err := s.lookup(c)
	if err != nil {
		return err
	}

	userText := lo.EmptyableToPtr(strings.TrimSpace(c.FormValue("message")))

	documentPath, err := s.saveDocument(c, id)
	if err != nil {
		return err
	}

	res, err := s.turns.Submit(s.ctx, id, userText, documentPath)
	if err != nil {
		return err
	}

	replies := conversation.Replies(res.Added)
	if replies == nil {
		replies = []string{}
	}

	return c.JSON(turnView{
		sessionView: newSessionView(id, res.State),
		Added:       lo.Ternary(res.Added == nil, []conversation.Message{}, res.Added),
		Replies:     replies,
	})
}

func (s *Server) lookup(c *fiber.Ctx) (string, conversation.State, error) {
	id := c.Params("id")
	if !session.ValidID(id) {
		return "", conversation.State{}, fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	state, ok := s.sessions.Get(id)
	if !ok {
		return "", conversation.State{}, fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	return id, state, nil
}

// saveDocument stores the uploaded document under the session's upload dir and
// returns its path, or nil when the request carries no document. The stored
// name is the client's base name, so uploading the same file again yields the
// same path.
func (s *Server) saveDocument(c *fiber.Ctx, id string) (*string, error) {
	form, err := c.MultipartForm()
	if errors.Is(err, fasthttp.ErrNoMultipartForm) {
		return nil, nil
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid multipart form: "+err.Error())
	}

	files := form.File["document"]
	if len(files) == 0 {
		return nil, nil
	}
	header := files[0]

	name := filepath.Base(header.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid document name")
	}

	dir := s.sessions.UploadDir(id)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return nil, oops.In("api").With("session_id", id).Wrapf(err, "failed to create upload dir")
	}

	path := filepath.Join(dir, name)
	if err = c.SaveFile(header, path); err != nil {
		return nil, oops.In("api").With("session_id", id).Wrapf(err, "failed to save document")
	}

	return &path, nil
}
