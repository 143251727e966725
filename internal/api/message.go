package api

import (
	"mime/multipart"
	"net/http"

	"newsflow/backend/internal/models"
	"newsflow/backend/internal/service"
	apperrors "newsflow/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// MessageController handles message creation
type MessageController struct {
	messageService *service.MessageService
	maxUploadBytes int64
}

// NewMessageController creates a new message controller
func NewMessageController(messageService *service.MessageService, maxUploadBytes int64) *MessageController {
	return &MessageController{
		messageService: messageService,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers the routes for the message controller
func (c *MessageController) RegisterRoutes(router gin.IRouter) {
	router.POST("/api/stories/:storyId/messages", c.CreateMessage)
}

// CreateMessage stores a message and, for "@ai" messages, the assistant's
// reply. It takes either a JSON body or a multipart form carrying files.
func (c *MessageController) CreateMessage(ctx *gin.Context) {
	var req models.CreateMessageRequest
	var uploads []*multipart.FileHeader

	if isMultipartRequest(ctx) {
		form, err := parseMultipart(ctx, c.maxUploadBytes)
		if err != nil {
			_ = ctx.Error(err)
			return
		}
		defer cleanupForm(form)

		req.Author = firstValue(form, "author")
		req.Content = firstValue(form, "content")
		req.TimePosted = firstValue(form, "timePosted")
		uploads = form.File["files"]
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(apperrors.NewValidationError("Invalid request format").WithDetails(err.Error()))
		return
	}

	resp, err := c.messageService.CreateMessage(ctx.Request.Context(), ctx.Param("storyId"), &req, uploads)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

func firstValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
