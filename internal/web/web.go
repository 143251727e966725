package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"newsflow/backend/internal/models"
	"newsflow/backend/internal/service"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// Page renders the single NewsFlow page
type Page struct {
	storyService *service.StoryService
	maxUpload    int64
}

// NewPage creates the page handler
func NewPage(storyService *service.StoryService, maxUpload int64) *Page {
	return &Page{storyService: storyService, maxUpload: maxUpload}
}

// pageData is what the index template renders
type pageData struct {
	Stories   []models.Story
	Selected  *models.Story
	MaxUpload int64
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"isImage": func(fileType string) bool {
		return strings.HasPrefix(fileType, "image/")
	},
	"isVideo": func(fileType string) bool {
		return strings.HasPrefix(fileType, "video/")
	},
	"latest": func(messages []models.Message) string {
		if len(messages) == 0 {
			return ""
		}
		return messages[len(messages)-1].Content
	},
	"plural": func(n int, word string) string {
		if n == 1 {
			return word
		}
		return word + "s"
	},
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// RegisterRoutes installs the templates on engine and registers "/" and "/assets"
func (p *Page) RegisterRoutes(engine *gin.Engine) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	engine.SetHTMLTemplate(tmpl)

	assets, err := fs.Sub(assetFS, "assets")
	if err != nil {
		return err
	}
	engine.StaticFS("/assets", http.FS(assets))
	engine.GET("/", p.Index)
	return nil
}

// Index renders the story list and, with ?story=<id>, that story's timeline
func (p *Page) Index(ctx *gin.Context) {
	stories, err := p.storyService.ListStories(ctx.Request.Context())
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	data := pageData{Stories: stories, MaxUpload: p.maxUpload}
	if id := ctx.Query("story"); id != "" {
		for i := range stories {
			if stories[i].ID == id {
				data.Selected = &stories[i]
				break
			}
		}
	}

	ctx.HTML(http.StatusOK, "index.html", data)
}
