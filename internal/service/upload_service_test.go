package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsflow/backend/internal/models"
	apperrors "newsflow/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUploadSave(t *testing.T) {
	env := setupTestEnv(t)

	files, err := env.uploads.Save(fileHeaders(t,
		testFile{name: "report.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4 test")},
		testFile{name: "pixel.png", data: pngHeader},
		testFile{name: "notes.txt", contentType: "application/octet-stream", data: []byte("plain words")},
	))
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "report.pdf", files[0].OriginalName)
	assert.Equal(t, "application/pdf", files[0].Mimetype)
	assert.True(t, strings.HasSuffix(files[0].Filename, ".pdf"))
	assert.Equal(t, "/uploads/"+files[0].Filename, files[0].URL)
	assert.Equal(t, int64(len("%PDF-1.4 test")), files[0].Size)

	// Sniffed when the part carries no usable type
	assert.Equal(t, "image/png", files[1].Mimetype)
	assert.True(t, strings.HasPrefix(files[2].Mimetype, "text/plain"))

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(env.uploads.Dir(), f.Filename))
		require.NoError(t, err)
		assert.Equal(t, f.Size, int64(len(data)))
	}
}

func TestUploadSaveRequiresFiles(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.uploads.Save(nil)
	assert.Equal(t, 400, apperrors.GetStatusCode(err))
}

func TestUploadDelete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	files, err := env.uploads.Save(fileHeaders(t,
		testFile{name: "loose.txt", contentType: "text/plain", data: []byte("a")},
		testFile{name: "kept.txt", contentType: "text/plain", data: []byte("b")},
	))
	require.NoError(t, err)

	story, err := env.stories.CreateStory(ctx, &models.CreateStoryRequest{Title: "Files"})
	require.NoError(t, err)
	_, err = env.messages.CreateMessage(ctx, story.ID, &models.CreateMessageRequest{
		Author:      "You",
		Content:     "attached",
		Attachments: files[1:],
	}, nil)
	require.NoError(t, err)

	require.NoError(t, env.uploads.Delete(ctx, files[0].Filename))
	_, err = os.Stat(filepath.Join(env.uploads.Dir(), files[0].Filename))
	assert.True(t, os.IsNotExist(err))

	err = env.uploads.Delete(ctx, files[1].Filename)
	assert.Equal(t, 409, apperrors.GetStatusCode(err))

	err = env.uploads.Delete(ctx, "../test.db")
	assert.Equal(t, 400, apperrors.GetStatusCode(err))

	// Missing files are already gone
	assert.NoError(t, env.uploads.Delete(ctx, "nothing-here.txt"))
}
