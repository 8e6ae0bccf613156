package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

const openAPIPath = "/openapi.json"

//go:embed docs/openapi.json
var openAPIDocument []byte

//go:embed docs/*.html
var docsFS embed.FS

var referenceTemplate = template.Must(template.ParseFS(docsFS, "docs/reference.html"))

// openAPISpec handles GET /openapi.json
func (s *Server) openAPISpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", openAPIDocument)
}

// reference handles GET /reference, the browsable view of /openapi.json.
func (s *Server) reference(c *gin.Context) {
	var buf bytes.Buffer
	err := referenceTemplate.Execute(&buf, struct {
		Title   string
		SpecURL string
	}{
		Title:   s.site.Title,
		SpecURL: openAPIPath,
	})
	if err != nil {
		s.failure(c, "Failed to render API reference", err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
