package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"newsflow/backend/internal/models"
	"newsflow/backend/internal/repository"
	"newsflow/backend/pkg/cache"
	"newsflow/backend/pkg/config"
	"newsflow/backend/pkg/logger"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	repo     *repository.GormStoryRepository
	cache    *cache.Cache
	uploads  *UploadService
	stories  *StoryService
	messages *MessageService
	replier  *fakeReplier
}

type fakeReplier struct {
	answer string
	calls  []string
}

func (f *fakeReplier) Reply(_ context.Context, content string) string {
	f.calls = append(f.calls, content)
	return f.answer
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := config.OpenSQLite(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = config.CloseDB(db) })

	repo := repository.NewGormStoryRepository(db)
	require.NoError(t, repo.Migrate())

	store := cache.NewCache(time.Minute, 0, 10)
	t.Cleanup(store.Close)

	log := logger.Discard()
	uploads := NewUploadService(filepath.Join(dir, "uploads"), "/uploads", 1<<20, repo, log)
	replier := &fakeReplier{answer: "Here is a summary."}

	return &testEnv{
		repo:     repo,
		cache:    store,
		uploads:  uploads,
		stories:  NewStoryService(repo, store, uploads, log),
		messages: NewMessageService(repo, replier, uploads, store, log),
		replier:  replier,
	}
}

type testFile struct {
	name        string
	contentType string
	data        []byte
}

// fileHeaders builds multipart file headers the way a parsed request would
func fileHeaders(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

// failingRepo passes every call through except message inserts
type failingRepo struct {
	*repository.GormStoryRepository
}

func (f *failingRepo) CreateMessage(context.Context, *models.Message, []models.Attachment) error {
	return errors.New("disk I/O error")
}

// pausingRepo holds the first listing after its database read until release
// is closed, so a write can land in between
type pausingRepo struct {
	*repository.GormStoryRepository
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func newPausingRepo(repo *repository.GormStoryRepository) *pausingRepo {
	return &pausingRepo{
		GormStoryRepository: repo,
		read:                make(chan struct{}),
		release:             make(chan struct{}),
	}
}

func (p *pausingRepo) ListStories(ctx context.Context) ([]models.Story, error) {
	stories, err := p.GormStoryRepository.ListStories(ctx)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return stories, err
}
