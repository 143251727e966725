package router

import (
	"net/http"

	"newsflow/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// AddOpenAPIValidation validates API requests against the embedded schema
// and serves that schema at /api/docs/openapi.yaml
func (r *Router) AddOpenAPIValidation() {
	v, err := validator.NewOpenAPIValidator()
	if err != nil {
		r.Logger.LogError(err, "Failed to initialize OpenAPI validator")
		return
	}

	r.Engine.Use(v.Middleware())
	r.Engine.GET("/api/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", validator.Schema)
	})

	r.Logger.Info("OpenAPI validation enabled")
}

func rateLimit(perSecond float64) rate.Limit {
	return rate.Limit(perSecond)
}
