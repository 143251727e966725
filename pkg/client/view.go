package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"newsflow/backend/internal/models"
)

var (
	// ErrNoStorySelected is returned by actions that need a selected story
	ErrNoStorySelected = errors.New("no story selected")
	// ErrEmptyTitle is returned when a story is created without a title
	ErrEmptyTitle = errors.New("story title is required")
	// ErrNothingToSend is returned when the compose box is blank
	ErrNothingToSend = errors.New("message is empty")
)

// View is the page state of one user: the story list, the selected story,
// the compose box and the client-side notification toggles.
type View struct {
	Stories           []models.Story
	Selected          string
	Compose           string
	Author            string
	Notifications     map[string]bool
	ShowNewStoryModal bool

	api *Client
}

// NewView creates an empty view posting as author
func NewView(api *Client, author string) *View {
	if author == "" {
		author = models.DefaultParticipant
	}
	return &View{
		Author:        author,
		Notifications: make(map[string]bool),
		api:           api,
	}
}

// Load refreshes the story list. A selection whose story is gone is cleared.
func (v *View) Load(ctx context.Context) error {
	stories, err := v.api.ListStories(ctx)
	if err != nil {
		return err
	}
	v.Stories = stories
	if v.Selected != "" && v.find(v.Selected) == nil {
		v.Selected = ""
	}
	return nil
}

// Select makes storyID the open story. Unknown ids are ignored.
func (v *View) Select(storyID string) {
	if v.find(storyID) != nil {
		v.Selected = storyID
	}
}

// SelectedStory returns the open story or nil
func (v *View) SelectedStory() *models.Story {
	return v.find(v.Selected)
}

func (v *View) OpenNewStoryModal()  { v.ShowNewStoryModal = true }
func (v *View) CloseNewStoryModal() { v.ShowNewStoryModal = false }

// CreateStory creates a story from the modal inputs, puts it at the top of the
// list and opens it. participantsCSV is a comma separated name list.
func (v *View) CreateStory(ctx context.Context, title, participantsCSV string) (*models.Story, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	story, err := v.api.CreateStory(ctx, title, splitParticipants(participantsCSV))
	if err != nil {
		return nil, err
	}

	v.Stories = append([]models.Story{*story}, v.Stories...)
	v.Selected = story.ID
	v.ShowNewStoryModal = false
	return story, nil
}

// MarkRead moves the message to the head of the archived list right away and
// puts it back if the server rejects the change
func (v *View) MarkRead(ctx context.Context, storyID, messageID string) error {
	story := v.find(storyID)
	if story == nil {
		return nil
	}

	idx := -1
	for i := range story.NewMessages {
		if story.NewMessages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Already archived
		return nil
	}

	oldNew := story.NewMessages
	oldArchived := story.ArchivedMessages

	msg := oldNew[idx]
	now := time.Now()
	msg.IsNew = false
	msg.ReadAt = &now

	newMessages := make([]models.Message, 0, len(oldNew)-1)
	newMessages = append(newMessages, oldNew[:idx]...)
	newMessages = append(newMessages, oldNew[idx+1:]...)
	archived := append([]models.Message{msg}, oldArchived...)
	story.Partition(newMessages, archived)

	if err := v.api.MarkRead(ctx, messageID); err != nil {
		if s := v.find(storyID); s != nil {
			s.Partition(oldNew, oldArchived)
		}
		return err
	}
	return nil
}

// Send posts the compose text with files to the open story. Files are
// uploaded first; if the message then fails they are deleted again. The
// stored messages are appended to the story's new list.
func (v *View) Send(ctx context.Context, files ...File) (*models.CreateMessageResponse, error) {
	story := v.SelectedStory()
	if story == nil {
		return nil, ErrNoStorySelected
	}
	content := v.Compose
	if strings.TrimSpace(content) == "" {
		return nil, ErrNothingToSend
	}
	storyID := story.ID

	var uploaded []models.UploadedFile
	if len(files) > 0 {
		var err error
		uploaded, err = v.api.Upload(ctx, files...)
		if err != nil {
			return nil, err
		}
	}

	resp, err := v.api.CreateMessage(ctx, storyID, models.CreateMessageRequest{
		Author:      v.Author,
		Content:     content,
		TimePosted:  time.Now().Format("15:04"),
		Attachments: uploaded,
	})
	if err != nil {
		for _, f := range uploaded {
			// Best effort: a leftover file only costs disk space
			_ = v.api.DeleteUpload(context.WithoutCancel(ctx), f.Filename)
		}
		return nil, err
	}

	if s := v.find(storyID); s != nil {
		newMessages := append(s.NewMessages, *resp.UserMessage)
		if resp.AIMessage != nil {
			newMessages = append(newMessages, *resp.AIMessage)
		}
		s.Partition(newMessages, s.ArchivedMessages)
		v.moveToTop(storyID)
	}
	v.Compose = ""
	return resp, nil
}

// ToggleNotifications flips the notification setting of the open story
func (v *View) ToggleNotifications() bool {
	if v.Selected == "" {
		return false
	}
	enabled := !v.Notifications[v.Selected]
	if enabled {
		v.Notifications[v.Selected] = true
	} else {
		delete(v.Notifications, v.Selected)
	}
	return enabled
}

// NotificationsEnabled reports the toggle for storyID
func (v *View) NotificationsEnabled(storyID string) bool {
	return v.Notifications[storyID]
}

// Archive deletes the open story after the user confirmed it
func (v *View) Archive(ctx context.Context) error {
	if v.Selected == "" {
		return ErrNoStorySelected
	}
	id := v.Selected
	if err := v.api.DeleteStory(ctx, id); err != nil {
		return err
	}

	kept := v.Stories[:0]
	for _, s := range v.Stories {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	v.Stories = kept
	delete(v.Notifications, id)
	v.Selected = ""
	return nil
}

func (v *View) find(storyID string) *models.Story {
	if storyID == "" {
		return nil
	}
	for i := range v.Stories {
		if v.Stories[i].ID == storyID {
			return &v.Stories[i]
		}
	}
	return nil
}

// moveToTop mirrors the server's most-recent-activity ordering
func (v *View) moveToTop(storyID string) {
	for i := range v.Stories {
		if v.Stories[i].ID == storyID {
			story := v.Stories[i]
			copy(v.Stories[1:i+1], v.Stories[:i])
			v.Stories[0] = story
			return
		}
	}
}

func splitParticipants(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
