package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultParticipant is used when a story is created without participants
const DefaultParticipant = "You"

// Story is a named discussion thread with an ordered participant list
type Story struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title        string    `json:"title" gorm:"not null"`
	Participants []string  `json:"participants" gorm:"serializer:json;type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"index"`

	Messages []Message `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	// Read-side projection filled by the repository
	NewMessageCount  int       `json:"new_message_count" gorm:"-"`
	NewMessages      []Message `json:"newMessages" gorm:"-"`
	ArchivedMessages []Message `json:"archivedMessages" gorm:"-"`
}

// TableName overrides the table name
func (Story) TableName() string {
	return "stories"
}

// BeforeCreate assigns an id and guarantees a non-empty participant list
func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.Participants = NormalizeParticipants(s.Participants)
	return nil
}

// Partition splits loaded messages into the new and archived lists. New
// messages keep ascending creation order; archived messages are expected to
// arrive already sorted most-recently-read first.
func (s *Story) Partition(newMessages, archived []Message) {
	if newMessages == nil {
		newMessages = []Message{}
	}
	if archived == nil {
		archived = []Message{}
	}
	s.NewMessages = newMessages
	s.ArchivedMessages = archived
	s.NewMessageCount = len(newMessages)
}

// NormalizeParticipants trims names, drops blanks and falls back to the default
// participant so the list is never empty
func NormalizeParticipants(participants []string) []string {
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultParticipant)
	}
	return out
}

// CreateStoryRequest is the body of POST /api/stories
type CreateStoryRequest struct {
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
}
