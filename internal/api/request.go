package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	apperrors "newsflow/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files
const multipartMemory = 32 << 20

// parseMultipart limits the request body to maxBytes and parses it. Oversized
// bodies yield a 413 AppError.
func parseMultipart(ctx *gin.Context, maxBytes int64) (*multipart.Form, error) {
	if maxBytes > 0 {
		if ctx.Request.ContentLength > maxBytes {
			return nil, payloadTooLarge(maxBytes)
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
	}

	if err := ctx.Request.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return nil, payloadTooLarge(maxBytes)
		}
		return nil, apperrors.NewValidationError("Invalid multipart request").WithDetails(err.Error())
	}

	return ctx.Request.MultipartForm, nil
}

func payloadTooLarge(maxBytes int64) *apperrors.AppError {
	return apperrors.NewPayloadTooLargeError("Upload exceeds the maximum size").
		WithDetails(gin.H{"max_bytes": maxBytes})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func isMultipartRequest(ctx *gin.Context) bool {
	return ctx.ContentType() == gin.MIMEMultipartPOSTForm
}

func cleanupForm(form *multipart.Form) {
	if form != nil {
		_ = form.RemoveAll()
	}
}
