package api

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type simpleUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var sampleUsers = []simpleUser{
	{ID: "1", Name: "John Doe", Email: "john@example.com"},
	{ID: "2", Name: "Jane Smith", Email: "jane@example.com"},
}

// simpleUsers handles GET /api/simple-users
func (s *Server) simpleUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   sampleUsers,
		"total":   len(sampleUsers),
	})
}

// openAPI handles GET /api/openapi/:id
func (s *Server) openAPI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":    c.Param("id"),
		"name":  "OpenApi 1",
		"price": 100,
	})
}

// health handles GET /api/health
func (s *Server) health(c *gin.Context) {
	database := "disabled"
	if s.database != nil {
		database = string(s.database.Status())
	}

	uptime := time.Since(s.startTime).Seconds()

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":    math.Round(uptime*1000) / 1000,
		"database":  database,
	})
}

// home handles GET /home, the target of the / alias.
func (s *Server) home(c *gin.Context) {
	c.JSON(http.StatusOK, s.site)
}
