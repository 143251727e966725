package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsflow/backend/internal/models"

	"gorm.io/gorm"
)

// ErrStoryNotFound is returned when an operation targets a story that does not exist
var ErrStoryNotFound = errors.New("story not found")

// StoryRepository persists stories together with their messages and attachments
type StoryRepository interface {
	ListStories(ctx context.Context) ([]models.Story, error)
	CreateStory(ctx context.Context, story *models.Story) error
	StoryExists(ctx context.Context, id string) (bool, error)
	CreateMessage(ctx context.Context, message *models.Message, attachments []models.Attachment) error
	MarkMessageRead(ctx context.Context, id string) (bool, error)
	DeleteStory(ctx context.Context, id string) ([]string, error)
	AttachmentReferenced(ctx context.Context, filename string) (bool, error)
	Ping(ctx context.Context) error
}

type GormStoryRepository struct {
	db *gorm.DB
}

func NewGormStoryRepository(db *gorm.DB) *GormStoryRepository {
	return &GormStoryRepository{db: db}
}

// Migrate creates or updates the schema
func (r *GormStoryRepository) Migrate() error {
	return r.db.AutoMigrate(models.AllModels()...)
}

func orderAttachments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// ListStories returns every story, most recently active first, with its
// messages split into the new and archived partitions
func (r *GormStoryRepository) ListStories(ctx context.Context) ([]models.Story, error) {
	db := r.db.WithContext(ctx)

	var stories []models.Story
	if err := db.Order("updated_at DESC").Order("created_at DESC").Find(&stories).Error; err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	if len(stories) == 0 {
		return []models.Story{}, nil
	}

	var newMessages []models.Message
	err := db.Preload("Attachments", orderAttachments).
		Where("is_new = ?", true).
		Order("created_at ASC").
		Find(&newMessages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load new messages: %w", err)
	}

	var archived []models.Message
	err = db.Preload("Attachments", orderAttachments).
		Where("is_new = ?", false).
		Order("read_at DESC").
		Order("created_at DESC").
		Find(&archived).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load archived messages: %w", err)
	}

	newByStory := groupByStory(newMessages)
	archivedByStory := groupByStory(archived)
	for i := range stories {
		stories[i].Partition(newByStory[stories[i].ID], archivedByStory[stories[i].ID])
	}

	return stories, nil
}

func groupByStory(messages []models.Message) map[string][]models.Message {
	grouped := make(map[string][]models.Message)
	for _, m := range messages {
		m.EnsureAttachments()
		grouped[m.StoryID] = append(grouped[m.StoryID], m)
	}
	return grouped
}

func (r *GormStoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	if err := r.db.WithContext(ctx).Create(story).Error; err != nil {
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

func (r *GormStoryRepository) StoryExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Story{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up story: %w", err)
	}
	return count > 0, nil
}

// CreateMessage stores the message and its attachment rows and bumps the
// story's updated_at, all in one transaction
func (r *GormStoryRepository) CreateMessage(ctx context.Context, message *models.Message, attachments []models.Attachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Story{}).Where("id = ?", message.StoryID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up story: %w", err)
		}
		if count == 0 {
			return ErrStoryNotFound
		}

		message.Attachments = nil
		if err := tx.Create(message).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		stored := make([]models.Attachment, 0, len(attachments))
		for _, a := range attachments {
			a.ID = ""
			a.MessageID = message.ID
			if err := tx.Create(&a).Error; err != nil {
				return fmt.Errorf("failed to create attachment: %w", err)
			}
			stored = append(stored, a)
		}
		message.Attachments = stored

		err := tx.Model(&models.Story{}).
			Where("id = ?", message.StoryID).
			Update("updated_at", time.Now()).Error
		if err != nil {
			return fmt.Errorf("failed to touch story: %w", err)
		}
		return nil
	})
}

// MarkMessageRead archives a new message. It reports whether anything changed;
// already archived and unknown ids are left alone.
func (r *GormStoryRepository) MarkMessageRead(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND is_new = ?", id, true).
		Updates(map[string]interface{}{
			"is_new":  false,
			"read_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark message read: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteStory removes the story with its messages and attachments and returns
// the stored file names of the removed attachments
func (r *GormStoryRepository) DeleteStory(ctx context.Context, id string) ([]string, error) {
	var filenames []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messageIDs := tx.Model(&models.Message{}).Select("id").Where("story_id = ?", id)

		if err := tx.Model(&models.Attachment{}).
			Where("message_id IN (?)", messageIDs).
			Pluck("filename", &filenames).Error; err != nil {
			return fmt.Errorf("failed to load attachments: %w", err)
		}

		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&models.Attachment{}).Error; err != nil {
			return fmt.Errorf("failed to delete attachments: %w", err)
		}
		if err := tx.Where("story_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Story{}).Error; err != nil {
			return fmt.Errorf("failed to delete story: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return filenames, nil
}

// AttachmentReferenced reports whether any attachment row points at filename
func (r *GormStoryRepository) AttachmentReferenced(ctx context.Context, filename string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Attachment{}).Where("filename = ?", filename).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up attachment: %w", err)
	}
	return count > 0, nil
}

func (r *GormStoryRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
