package service

import (
	"context"
	"strings"

	"newsflow/backend/internal/models"
	"newsflow/backend/internal/repository"
	"newsflow/backend/pkg/cache"
	apperrors "newsflow/backend/pkg/errors"
	"newsflow/backend/pkg/logger"
)

// FileRemover deletes stored upload files by name
type FileRemover interface {
	Remove(filename string) error
}

type StoryService struct {
	repo    repository.StoryRepository
	listing *listingCache
	files   FileRemover
	log     *logger.Logger
}

// NewStoryService creates the story service. store and files may be nil.
func NewStoryService(repo repository.StoryRepository, store cache.Store, files FileRemover, log *logger.Logger) *StoryService {
	log = log.WithComponent("stories")
	return &StoryService{
		repo:    repo,
		listing: newListingCache(store, log),
		files:   files,
		log:     log,
	}
}

// ListStories returns every story with its partitioned messages
func (s *StoryService) ListStories(ctx context.Context) ([]models.Story, error) {
	if stories, ok := s.listing.get(ctx); ok {
		return stories, nil
	}

	gen := s.listing.generation()
	stories, err := s.repo.ListStories(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("Failed to fetch stories", err)
	}

	s.listing.set(ctx, gen, stories)
	return stories, nil
}

// CreateStory validates the request and stores a new story
func (s *StoryService) CreateStory(ctx context.Context, req *models.CreateStoryRequest) (*models.Story, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("Title is required")
	}

	story := &models.Story{
		Title:        title,
		Participants: models.NormalizeParticipants(req.Participants),
	}
	if err := s.repo.CreateStory(ctx, story); err != nil {
		return nil, apperrors.NewStorageError("Failed to create story", err)
	}
	story.Partition(nil, nil)

	s.listing.invalidate(ctx)
	s.log.Info("story created", "story_id", story.ID, "participants", len(story.Participants))
	return story, nil
}

// DeleteStory removes a story with its messages and attachments, then deletes
// the attachment files no other message still points at. Unknown ids are a no-op.
func (s *StoryService) DeleteStory(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("Story ID is required")
	}

	filenames, err := s.repo.DeleteStory(ctx, id)
	if err != nil {
		return apperrors.NewStorageError("Failed to delete story", err)
	}
	s.listing.invalidate(ctx)

	if s.files != nil {
		for _, name := range filenames {
			referenced, err := s.repo.AttachmentReferenced(ctx, name)
			if err != nil {
				s.log.LogError(err, "failed to check attachment references", "story_id", id, "filename", name)
				continue
			}
			if referenced {
				continue
			}
			if err := s.files.Remove(name); err != nil {
				s.log.LogError(err, "failed to remove attachment file", "story_id", id, "filename", name)
			}
		}
	}

	s.log.Info("story deleted", "story_id", id, "attachments", len(filenames))
	return nil
}

// MarkRead archives a message. Repeat calls and unknown ids succeed without change.
func (s *StoryService) MarkRead(ctx context.Context, messageID string) error {
	if strings.TrimSpace(messageID) == "" {
		return apperrors.NewValidationError("Message ID is required")
	}

	changed, err := s.repo.MarkMessageRead(ctx, messageID)
	if err != nil {
		return apperrors.NewStorageError("Failed to mark message as read", err)
	}
	if changed {
		s.listing.invalidate(ctx)
	}
	return nil
}

// Ping checks the underlying store
func (s *StoryService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
