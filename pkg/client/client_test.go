package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"newsflow/backend/internal/models"
	"newsflow/backend/pkg/config"
	"newsflow/backend/pkg/di"
	"newsflow/backend/pkg/logger"
	"newsflow/backend/pkg/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	cfg *config.Config
}

func setupServer(t *testing.T, wrap func(http.Handler) http.Handler) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Database.Path = filepath.Join(dir, "newsflow.db")
	cfg.Security.AllowedOrigins = []string{"*"}
	cfg.Uploads.Dir = filepath.Join(dir, "uploads")
	cfg.Uploads.URLPrefix = "/uploads"
	cfg.Uploads.MaxBytes = 1 << 20
	cfg.AI.Timeout = time.Second

	db, err := config.OpenSQLite(cfg.Database.Path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = config.CloseDB(db) })

	container, err := di.New(db, cfg, logger.Discard(), "")
	require.NoError(t, err)
	require.NoError(t, container.Repository.Migrate())

	r := router.New(container, "test")
	require.NoError(t, r.SetupRoutes())
	t.Cleanup(r.Close)

	var handler http.Handler = r.Engine
	if wrap != nil {
		handler = wrap(handler)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, cfg: cfg}
}

func newView(t *testing.T, srv *testServer) *View {
	t.Helper()
	v := NewView(New(srv.URL, srv.Client()), "Ana")
	require.NoError(t, v.Load(context.Background()))
	return v
}

func TestViewBudgetVote(t *testing.T) {
	srv := setupServer(t, nil)
	ctx := context.Background()
	v := newView(t, srv)
	assert.Empty(t, v.Stories)

	v.OpenNewStoryModal()
	assert.True(t, v.ShowNewStoryModal)

	story, err := v.CreateStory(ctx, "Budget Vote", " Ana, Ben ,, ")
	require.NoError(t, err)
	assert.False(t, v.ShowNewStoryModal)
	assert.Equal(t, story.ID, v.Selected)
	assert.Equal(t, []string{"Ana", "Ben"}, story.Participants)

	v.Compose = "Draft ready"
	resp, err := v.Send(ctx)
	require.NoError(t, err)
	assert.Nil(t, resp.AIMessage)
	assert.Empty(t, v.Compose)

	selected := v.SelectedStory()
	require.Len(t, selected.NewMessages, 1)
	assert.Equal(t, 1, selected.NewMessageCount)

	require.NoError(t, v.MarkRead(ctx, story.ID, resp.UserMessage.ID))
	selected = v.SelectedStory()
	assert.Equal(t, 0, selected.NewMessageCount)
	require.Len(t, selected.ArchivedMessages, 1)
	assert.False(t, selected.ArchivedMessages[0].IsNew)

	// The server agrees with the optimistic move
	require.NoError(t, v.Load(ctx))
	selected = v.SelectedStory()
	assert.Equal(t, 0, selected.NewMessageCount)
	require.Len(t, selected.ArchivedMessages, 1)
	assert.Equal(t, "Draft ready", selected.ArchivedMessages[0].Content)

	// Repeating the read is a no-op
	require.NoError(t, v.MarkRead(ctx, story.ID, resp.UserMessage.ID))
	assert.Len(t, v.SelectedStory().ArchivedMessages, 1)
}

func TestViewCreateStoryDefaults(t *testing.T) {
	srv := setupServer(t, nil)
	v := newView(t, srv)

	_, err := v.CreateStory(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	story, err := v.CreateStory(context.Background(), "Weather desk", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"You"}, story.Participants)
}

func TestViewSendWithAIMention(t *testing.T) {
	srv := setupServer(t, nil)
	ctx := context.Background()
	v := newView(t, srv)

	_, err := v.CreateStory(ctx, "Transit strike", "")
	require.NoError(t, err)

	v.Compose = "@ai what changed overnight?"
	resp, err := v.Send(ctx)
	require.NoError(t, err)
	require.NotNil(t, resp.AIMessage)

	messages := v.SelectedStory().NewMessages
	require.Len(t, messages, 2)
	assert.Equal(t, "Ana", messages[0].Author)
	assert.Equal(t, "AI Assistant", messages[1].Author)
}

func TestViewSendRequiresInput(t *testing.T) {
	srv := setupServer(t, nil)
	ctx := context.Background()
	v := newView(t, srv)

	v.Compose = "hello"
	_, err := v.Send(ctx)
	assert.ErrorIs(t, err, ErrNoStorySelected)

	_, err = v.CreateStory(ctx, "Sports", "")
	require.NoError(t, err)
	v.Compose = "   "
	_, err = v.Send(ctx)
	assert.ErrorIs(t, err, ErrNothingToSend)
}

func TestViewSendWithFiles(t *testing.T) {
	srv := setupServer(t, nil)
	ctx := context.Background()
	v := newView(t, srv)

	_, err := v.CreateStory(ctx, "Flood coverage", "")
	require.NoError(t, err)

	v.Compose = "photos attached"
	resp, err := v.Send(ctx, File{Name: "river.txt", ContentType: "text/plain", Content: strings.NewReader("water level")})
	require.NoError(t, err)
	require.Len(t, resp.UserMessage.Attachments, 1)

	att := resp.UserMessage.Attachments[0]
	assert.Equal(t, "river.txt", att.OriginalName)
	assert.Equal(t, "text/plain", att.FileType)
	_, err = os.Stat(filepath.Join(srv.cfg.Uploads.Dir, att.Filename))
	assert.NoError(t, err)
}

// failMessages rejects message creation so the compensation path runs
func failMessages(deleted *[]string, mu *sync.Mutex) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/messages"):
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": "STORAGE_ERROR", "message": "Failed to create message"},
				})
				return
			case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/upload/"):
				mu.Lock()
				*deleted = append(*deleted, strings.TrimPrefix(r.URL.Path, "/api/upload/"))
				mu.Unlock()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TestViewSendCompensatesUploads(t *testing.T) {
	var deleted []string
	var mu sync.Mutex
	srv := setupServer(t, failMessages(&deleted, &mu))
	ctx := context.Background()
	v := newView(t, srv)

	_, err := v.CreateStory(ctx, "Court ruling", "")
	require.NoError(t, err)

	v.Compose = "ruling attached"
	_, err = v.Send(ctx, File{Name: "ruling.txt", Content: strings.NewReader("text of the ruling")})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "STORAGE_ERROR", apiErr.Code)

	// Compose is kept so the user can retry
	assert.Equal(t, "ruling attached", v.Compose)
	assert.Empty(t, v.SelectedStory().NewMessages)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, deleted, 1)
	_, err = os.Stat(filepath.Join(srv.cfg.Uploads.Dir, deleted[0]))
	assert.True(t, os.IsNotExist(err))
}

func TestViewMarkReadRevertsOnFailure(t *testing.T) {
	srv := setupServer(t, nil)
	ctx := context.Background()
	v := newView(t, srv)

	story, err := v.CreateStory(ctx, "Markets", "")
	require.NoError(t, err)
	v.Compose = "Stocks up"
	resp, err := v.Send(ctx)
	require.NoError(t, err)

	// A client pointed at a dead server cannot confirm the read
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	v.api = New(dead.URL, nil)

	err = v.MarkRead(ctx, story.ID, resp.UserMessage.ID)
	require.Error(t, err)

	selected := v.SelectedStory()
	require.Len(t, selected.NewMessages, 1)
	assert.Empty(t, selected.ArchivedMessages)
	assert.True(t, selected.NewMessages[0].IsNew)
}

func TestViewNotificationsAndArchive(t *testing.T) {
	srv := setupServer(t, nil)
	ctx := context.Background()
	v := newView(t, srv)

	assert.False(t, v.ToggleNotifications())

	first, err := v.CreateStory(ctx, "First", "")
	require.NoError(t, err)
	second, err := v.CreateStory(ctx, "Second", "")
	require.NoError(t, err)
	require.Len(t, v.Stories, 2)
	assert.Equal(t, second.ID, v.Stories[0].ID)

	v.Select(first.ID)
	assert.True(t, v.ToggleNotifications())
	assert.True(t, v.NotificationsEnabled(first.ID))
	assert.False(t, v.NotificationsEnabled(second.ID))
	assert.False(t, v.ToggleNotifications())
	assert.False(t, v.NotificationsEnabled(first.ID))

	v.Select("missing")
	assert.Equal(t, first.ID, v.Selected)

	require.NoError(t, v.Archive(ctx))
	assert.Empty(t, v.Selected)
	require.Len(t, v.Stories, 1)
	assert.Equal(t, second.ID, v.Stories[0].ID)

	assert.ErrorIs(t, v.Archive(ctx), ErrNoStorySelected)

	require.NoError(t, v.Load(ctx))
	require.Len(t, v.Stories, 1)
}

func TestClientErrorEnvelope(t *testing.T) {
	srv := setupServer(t, nil)

	_, err := New(srv.URL, nil).CreateMessage(context.Background(), "unknown", models.CreateMessageRequest{Author: "Ana", Content: "hi"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "Story does not exist", apiErr.Message)
}
