package session

import (
	"docchat/app/service/conversation"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Lifecycle(t *testing.T) {
	s := NewService(time.Hour, time.Minute, t.TempDir())

	id := s.Create()
	assert.True(t, ValidID(id))
	assert.Equal(t, 1, s.Count())

	state, ok := s.Get(id)
	require.True(t, ok)
	assert.Empty(t, state.History)

	require.NoError(t, s.Save(id, conversation.State{
		History:          []conversation.Message{conversation.UserMessage("hi")},
		LastDocumentName: lo.ToPtr("a.pdf"),
	}))

	state, ok = s.Get(id)
	require.True(t, ok)
	assert.Len(t, state.History, 1)
	assert.Equal(t, "a.pdf", lo.FromPtr(state.LastDocumentName))

	s.Delete(id)
	_, ok = s.Get(id)
	assert.False(t, ok)
}

func TestService_SaveAfterDelete(t *testing.T) {
	s := NewService(time.Hour, time.Minute, t.TempDir())

	id := s.Create()
	s.Delete(id)

	err := s.Save(id, conversation.State{History: []conversation.Message{conversation.UserMessage("hi")}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok := s.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Count())
}

func TestService_Ensure(t *testing.T) {
	s := NewService(time.Hour, time.Minute, t.TempDir())

	s.Ensure("mcp")
	require.NoError(t, s.Save("mcp", conversation.State{History: []conversation.Message{conversation.UserMessage("hi")}}))

	s.Ensure("mcp")
	state, ok := s.Get("mcp")
	require.True(t, ok)
	assert.Len(t, state.History, 1)
}

func TestService_DeleteRemovesUploads(t *testing.T) {
	s := NewService(time.Hour, time.Minute, t.TempDir())

	id := s.Create()
	dir := s.UploadDir(id)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644))

	s.Delete(id)

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestService_Expiry(t *testing.T) {
	s := NewService(20*time.Millisecond, 10*time.Millisecond, t.TempDir())

	id := s.Create()
	dir := s.UploadDir(id)
	require.NoError(t, os.MkdirAll(dir, 0755))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dir)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	_, ok := s.Get(id)
	assert.False(t, ok)
}

func TestService_Shutdown(t *testing.T) {
	s := NewService(time.Hour, time.Minute, t.TempDir())
	s.Create()
	s.Create()

	require.NoError(t, s.Shutdown())
	assert.Equal(t, 0, s.Count())
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("mcp"))
	assert.True(t, ValidID("0b6f4b8e-6d7a-4a53-9f8e-1b2c3d4e5f60"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("../etc"))
	assert.False(t, ValidID("a/b"))
}
