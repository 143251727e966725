package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"newsflow/backend/ai"
	"newsflow/backend/internal/models"
	"newsflow/backend/internal/repository"
	"newsflow/backend/pkg/cache"
	apperrors "newsflow/backend/pkg/errors"
	"newsflow/backend/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimePosted is used when the client sends no display time
const DefaultTimePosted = "now"

// Replier produces the assistant's answer for a message
type Replier interface {
	Reply(ctx context.Context, content string) string
}

// FileStore saves and removes uploaded files
type FileStore interface {
	Save(files []*multipart.FileHeader) ([]models.UploadedFile, error)
	RemoveAll(files []models.UploadedFile)
}

type MessageService struct {
	repo      repository.StoryRepository
	responder Replier
	files     FileStore
	listing   *listingCache
	tracer    trace.Tracer
	log       *logger.Logger
}

func NewMessageService(repo repository.StoryRepository, responder Replier, files FileStore, store cache.Store, log *logger.Logger) *MessageService {
	log = log.WithComponent("messages")
	return &MessageService{
		repo:      repo,
		responder: responder,
		files:     files,
		listing:   newListingCache(store, log),
		tracer:    otel.Tracer("newsflow/messages"),
		log:       log,
	}
}

// CreateMessage stores the user's message and, when it mentions the assistant,
// a second message holding the reply. Files in uploads are stored first and
// deleted again if the message cannot be persisted. The reply step never
// fails the call.
func (s *MessageService) CreateMessage(ctx context.Context, storyID string, req *models.CreateMessageRequest, uploads []*multipart.FileHeader) (*models.CreateMessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "messages.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("story.id", storyID),
		attribute.Int("message.uploads", len(uploads)),
	)

	author := strings.TrimSpace(req.Author)
	content := req.Content
	if strings.TrimSpace(storyID) == "" || author == "" || strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("Missing required fields")
	}

	exists, err := s.repo.StoryExists(ctx, storyID)
	if err != nil {
		return nil, apperrors.NewStorageError("Failed to create message", err)
	}
	if !exists {
		return nil, apperrors.NewValidationError("Story does not exist")
	}

	timePosted := strings.TrimSpace(req.TimePosted)
	if timePosted == "" {
		timePosted = DefaultTimePosted
	}

	attachments := make([]models.Attachment, 0, len(req.Attachments)+len(uploads))
	for _, f := range req.Attachments {
		attachments = append(attachments, f.ToAttachment(""))
	}

	var stored []models.UploadedFile
	if len(uploads) > 0 {
		if s.files == nil {
			return nil, apperrors.NewValidationError("File uploads are not enabled")
		}
		stored, err = s.files.Save(uploads)
		if err != nil {
			return nil, err
		}
		for _, f := range stored {
			attachments = append(attachments, f.ToAttachment(""))
		}
	}

	userMessage := &models.Message{
		StoryID:    storyID,
		Author:     author,
		Content:    content,
		TimePosted: timePosted,
	}
	if err := s.repo.CreateMessage(ctx, userMessage, attachments); err != nil {
		if len(stored) > 0 {
			s.files.RemoveAll(stored)
		}
		span.RecordError(err)
		if errors.Is(err, repository.ErrStoryNotFound) {
			return nil, apperrors.NewValidationError("Story does not exist")
		}
		return nil, apperrors.NewStorageError("Failed to create message", err)
	}
	userMessage.EnsureAttachments()
	s.listing.invalidate(ctx)

	resp := &models.CreateMessageResponse{UserMessage: userMessage}

	if ai.HasTrigger(content) && s.responder != nil {
		span.SetAttributes(attribute.Bool("message.ai", true))
		resp.AIMessage = s.storeReply(ctx, storyID, content)
	}

	return resp, nil
}

func (s *MessageService) storeReply(ctx context.Context, storyID, content string) *models.Message {
	reply := s.responder.Reply(ctx, content)

	aiMessage := &models.Message{
		StoryID:    storyID,
		Author:     ai.AuthorName,
		Content:    reply,
		TimePosted: ai.TimePosted,
	}
	if err := s.repo.CreateMessage(ctx, aiMessage, nil); err != nil {
		s.log.LogError(err, "failed to store assistant reply", "story_id", storyID)
		return nil
	}
	aiMessage.EnsureAttachments()
	s.listing.invalidate(ctx)
	return aiMessage
}
