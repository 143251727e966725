package validator

import (
	_ "embed"
	"fmt"
	"mime"
	"sync"

	apperrors "newsflow/backend/pkg/errors"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// Schema is the API description served at /api/docs/openapi.yaml
//
//go:embed openapi.yaml
var Schema []byte

// OpenAPIValidator validates requests against an OpenAPI document
type OpenAPIValidator struct {
	swagger *openapi3.T
	router  routers.Router
	mutex   sync.RWMutex
}

// NewOpenAPIValidator creates a validator for the embedded schema
func NewOpenAPIValidator() (*OpenAPIValidator, error) {
	return NewOpenAPIValidatorFromData(Schema)
}

// NewOpenAPIValidatorFromFile creates a validator for a schema on disk
func NewOpenAPIValidatorFromFile(path string) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI schema from %s: %w", path, err)
	}
	return newValidator(loader, swagger)
}

// NewOpenAPIValidatorFromData creates a validator for an in-memory schema
func NewOpenAPIValidatorFromData(data []byte) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI schema: %w", err)
	}
	return newValidator(loader, swagger)
}

func newValidator(loader *openapi3.Loader, swagger *openapi3.T) (*OpenAPIValidator, error) {
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI schema: %w", err)
	}

	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("error creating OpenAPI router: %w", err)
	}

	return &OpenAPIValidator{swagger: swagger, router: router}, nil
}

// Middleware returns a Gin middleware function that validates requests against the OpenAPI schema.
// Multipart bodies are left to the handlers so file parts are streamed only once.
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v.mutex.RLock()
		route, pathParams, err := v.router.FindRoute(c.Request)
		v.mutex.RUnlock()
		if err != nil {
			// Not described in the schema
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				ExcludeRequestBody: isMultipart(c.GetHeader("Content-Type")),
				MultiError:         false,
			},
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			_ = c.Error(apperrors.NewValidationError("Invalid request").WithDetails(err.Error()))
			c.Abort()
			return
		}

		c.Next()
	}
}

func isMultipart(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "multipart/form-data"
}
