package api

import (
	"net/http"

	"newsflow/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// UploadController handles file uploads for attachments
type UploadController struct {
	uploadService *service.UploadService
}

// NewUploadController creates a new upload controller
func NewUploadController(uploadService *service.UploadService) *UploadController {
	return &UploadController{uploadService: uploadService}
}

// RegisterRoutes registers the upload routes and serves stored files
func (c *UploadController) RegisterRoutes(router gin.IRouter, urlPrefix string) {
	router.POST("/api/upload", c.Upload)
	router.DELETE("/api/upload/:filename", c.Delete)
	router.Static(urlPrefix, c.uploadService.Dir())
}

// Upload stores every part of the "files" field
func (c *UploadController) Upload(ctx *gin.Context) {
	form, err := parseMultipart(ctx, c.uploadService.MaxBytes())
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	defer cleanupForm(form)

	files, err := c.uploadService.Save(form.File["files"])
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"files": files})
}

// Delete removes an uploaded file that no message references
func (c *UploadController) Delete(ctx *gin.Context) {
	if err := c.uploadService.Delete(ctx.Request.Context(), ctx.Param("filename")); err != nil {
		_ = ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
