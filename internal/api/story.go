package api

import (
	"net/http"

	"newsflow/backend/internal/models"
	"newsflow/backend/internal/service"
	apperrors "newsflow/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// StoryController handles story endpoints
type StoryController struct {
	storyService *service.StoryService
}

// NewStoryController creates a new story controller
func NewStoryController(storyService *service.StoryService) *StoryController {
	return &StoryController{storyService: storyService}
}

// RegisterRoutes registers the story routes
func (c *StoryController) RegisterRoutes(router gin.IRouter) {
	stories := router.Group("/api/stories")
	{
		stories.GET("", c.ListStories)
		stories.POST("", c.CreateStory)
		stories.DELETE("", c.DeleteStory)
	}
	router.POST("/api/messages/:messageId/read", c.MarkRead)
}

// ListStories returns every story with its new and archived messages
func (c *StoryController) ListStories(ctx *gin.Context) {
	stories, err := c.storyService.ListStories(ctx.Request.Context())
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, stories)
}

// CreateStory creates a story from {title, participants?}
func (c *StoryController) CreateStory(ctx *gin.Context) {
	var req models.CreateStoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(apperrors.NewValidationError("Invalid request format").WithDetails(err.Error()))
		return
	}

	story, err := c.storyService.CreateStory(ctx.Request.Context(), &req)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusCreated, story)
}

// DeleteStory archives a whole story: DELETE /api/stories?storyId=<id>
func (c *StoryController) DeleteStory(ctx *gin.Context) {
	if err := c.storyService.DeleteStory(ctx.Request.Context(), ctx.Query("storyId")); err != nil {
		_ = ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkRead moves a message to the archived partition
func (c *StoryController) MarkRead(ctx *gin.Context) {
	if err := c.storyService.MarkRead(ctx.Request.Context(), ctx.Param("messageId")); err != nil {
		_ = ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
