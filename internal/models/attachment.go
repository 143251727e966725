package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAttachmentImmutable is returned when something tries to update an attachment row
var ErrAttachmentImmutable = errors.New("attachments are immutable")

// Attachment is a stored file referenced by exactly one message
type Attachment struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MessageID    string    `json:"message_id" gorm:"type:varchar(36);not null;index"`
	Filename     string    `json:"filename" gorm:"not null;index"`
	OriginalName string    `json:"original_name" gorm:"not null"`
	FileType     string    `json:"file_type" gorm:"not null"`
	FilePath     string    `json:"file_path" gorm:"not null"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName overrides the table name
func (Attachment) TableName() string {
	return "attachments"
}

// BeforeCreate assigns an id
func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate rejects every update
func (a *Attachment) BeforeUpdate(tx *gorm.DB) error {
	return ErrAttachmentImmutable
}

// UploadedFile describes a file stored by the upload endpoint
type UploadedFile struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Mimetype     string `json:"mimetype"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// ToAttachment converts upload metadata into an attachment row for messageID
func (f UploadedFile) ToAttachment(messageID string) Attachment {
	return Attachment{
		MessageID:    messageID,
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		FileType:     f.Mimetype,
		FilePath:     f.URL,
		Size:         f.Size,
	}
}

// AllModels lists every table for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{&Story{}, &Message{}, &Attachment{}}
}
