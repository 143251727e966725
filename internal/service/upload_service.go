package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"newsflow/backend/internal/models"
	"newsflow/backend/internal/repository"
	apperrors "newsflow/backend/pkg/errors"
	"newsflow/backend/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const octetStream = "application/octet-stream"

// UploadService stores uploaded files in the public upload directory
type UploadService struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	repo      repository.StoryRepository
	log       *logger.Logger
}

func NewUploadService(dir, urlPrefix string, maxBytes int64, repo repository.StoryRepository, log *logger.Logger) *UploadService {
	return &UploadService{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		maxBytes:  maxBytes,
		repo:      repo,
		log:       log.WithComponent("uploads"),
	}
}

// Dir returns the directory files are written to
func (s *UploadService) Dir() string {
	return s.dir
}

// MaxBytes returns the request body limit for uploads
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Save stores every file under a fresh uuid name keeping the original
// extension. If any file fails the ones already written are removed.
func (s *UploadService) Save(files []*multipart.FileHeader) ([]models.UploadedFile, error) {
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("No files uploaded")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, apperrors.NewStorageError("Failed to prepare upload directory", err)
	}

	saved := make([]models.UploadedFile, 0, len(files))
	for _, fh := range files {
		file, err := s.saveFile(fh)
		if err != nil {
			s.RemoveAll(saved)
			return nil, apperrors.NewStorageError("Failed to upload files", err)
		}
		saved = append(saved, file)
	}

	return saved, nil
}

func (s *UploadService) saveFile(fh *multipart.FileHeader) (models.UploadedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	mediaType, err := detectMediaType(fh, src)
	if err != nil {
		return models.UploadedFile{}, err
	}

	name := uuid.New().String() + filepath.Ext(fh.Filename)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to create file: %w", err)
	}

	size, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return models.UploadedFile{}, fmt.Errorf("failed to write file: %w", errors.Join(copyErr, closeErr))
	}

	s.log.Debug("file stored", "filename", name, "size", size, "mimetype", mediaType)

	return models.UploadedFile{
		Filename:     name,
		OriginalName: fh.Filename,
		Mimetype:     mediaType,
		Size:         size,
		URL:          path.Join(s.urlPrefix, name),
	}, nil
}

// detectMediaType trusts the declared part type unless it is missing or
// generic, in which case the content is sniffed
func detectMediaType(fh *multipart.FileHeader, src multipart.File) (string, error) {
	declared := fh.Header.Get("Content-Type")
	if declared != "" && declared != octetStream {
		return declared, nil
	}

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to detect media type: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}
	return mtype.String(), nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *UploadService) Remove(filename string) error {
	if !validFilename(filename) {
		return apperrors.NewValidationError("Invalid filename")
	}

	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", filename, err)
	}
	return nil
}

// RemoveAll deletes every listed file, logging failures
func (s *UploadService) RemoveAll(files []models.UploadedFile) {
	for _, f := range files {
		if err := s.Remove(f.Filename); err != nil {
			s.log.LogError(err, "failed to remove uploaded file", "filename", f.Filename)
		}
	}
}

// Delete removes an uploaded file that no attachment references
func (s *UploadService) Delete(ctx context.Context, filename string) error {
	if !validFilename(filename) {
		return apperrors.NewValidationError("Invalid filename")
	}

	referenced, err := s.repo.AttachmentReferenced(ctx, filename)
	if err != nil {
		return apperrors.NewStorageError("Failed to check attachment references", err)
	}
	if referenced {
		return apperrors.NewConflictError(apperrors.CodeConflict, "File is attached to a message")
	}

	if err := s.Remove(filename); err != nil {
		return apperrors.NewStorageError("Failed to delete file", err)
	}
	return nil
}

func validFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
