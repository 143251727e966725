package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a post within a story. It is either new (unread) or archived.
type Message struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	StoryID    string     `json:"story_id" gorm:"type:varchar(36);not null;index:idx_messages_story_new,priority:1"`
	Author     string     `json:"author" gorm:"not null"`
	Content    string     `json:"content" gorm:"not null"`
	TimePosted string     `json:"time_posted" gorm:"not null"`
	IsNew      bool       `json:"is_new" gorm:"not null;default:true;index:idx_messages_story_new,priority:2"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	Attachments []Attachment `json:"attachments" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns an id; every message starts out new
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.IsNew = true
	m.ReadAt = nil
	return nil
}

// EnsureAttachments replaces a nil attachment slice with an empty one so the
// JSON form is always an array
func (m *Message) EnsureAttachments() {
	if m.Attachments == nil {
		m.Attachments = []Attachment{}
	}
}

// CreateMessageRequest is the JSON body of POST /api/stories/:storyId/messages
type CreateMessageRequest struct {
	Author      string         `json:"author"`
	Content     string         `json:"content"`
	TimePosted  string         `json:"timePosted"`
	Attachments []UploadedFile `json:"attachments"`
}

// CreateMessageResponse carries the stored user message and, when the AI
// trigger was present, the assistant reply
type CreateMessageResponse struct {
	UserMessage *Message `json:"userMessage"`
	AIMessage   *Message `json:"aiMessage,omitempty"`
}
