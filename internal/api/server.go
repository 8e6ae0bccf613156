package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/angeloszaimis/coe/internal/healthcheck"
	"github.com/angeloszaimis/coe/internal/users"
)

// Site describes the application for the landing document.
type Site struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type Config struct {
	Site Site
	// Database is nil when users live in memory.
	Database *healthcheck.Target
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Upstreams is mounted at /upstreams when set.
	Upstreams http.Handler
}

// Server is the gin engine plus the services its handlers call.
type Server struct {
	router    *gin.Engine
	logger    *slog.Logger
	users     *users.Service
	site      Site
	database  *healthcheck.Target
	metrics   http.Handler
	upstreams http.Handler
	startTime time.Time
}

func NewServer(logger *slog.Logger, userService *users.Service, cfg Config) *Server {
	s := &Server{
		router:    gin.New(),
		logger:    logger,
		users:     userService,
		site:      cfg.Site,
		database:  cfg.Database,
		metrics:   cfg.Metrics,
		upstreams: cfg.Upstreams,
		startTime: time.Now(),
	}

	s.router.Use(s.requestLogger(), gin.CustomRecovery(s.recoverPanic))
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/home", s.home)
	s.router.GET(openAPIPath, s.openAPISpec)
	s.router.GET("/reference", s.reference)

	api := s.router.Group("/api")
	{
		api.GET("/users", s.listUsers)
		api.POST("/users", s.createUser)
		api.DELETE("/users", s.resetUsers)
		api.GET("/users/:id", s.getUser)
		api.PUT("/users/:id", s.updateUser)
		api.PATCH("/users/:id", s.updateUser)
		api.DELETE("/users/:id", s.deleteUser)

		api.GET("/simple-users", s.simpleUsers)
		api.GET("/openapi/:id", s.openAPI)
		api.GET("/health", s.health)
	}

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}
	if s.upstreams != nil {
		s.router.GET("/upstreams", gin.WrapH(s.upstreams))
	}

	s.router.NoRoute(func(c *gin.Context) {
		s.errorResponse(c, http.StatusNotFound, "Not found")
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		s.logger.LogAttrs(c.Request.Context(), level, "Handled request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client", c.ClientIP()))
	}
}

func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.logger.Error("Recovered from panic",
		slog.String("path", c.Request.URL.Path),
		slog.Any("panic", recovered))
	s.errorResponse(c, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) errorResponse(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// failure logs err and answers with a generic 500 carrying message.
func (s *Server) failure(c *gin.Context, message string, err error) {
	s.logger.Error(message,
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Any("err", err))
	s.errorResponse(c, http.StatusInternalServerError, message)
}

func (s *Server) validationFailed(c *gin.Context, verr *users.ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Validation failed",
		"details": verr.Fields,
	})
}

// userError maps the service's sentinel errors onto responses. It reports false
// for anything it does not recognise.
func (s *Server) userError(c *gin.Context, err error) bool {
	var verr *users.ValidationError
	switch {
	case errors.As(err, &verr):
		s.validationFailed(c, verr)
	case errors.Is(err, users.ErrConflict):
		s.errorResponse(c, http.StatusConflict, "User with this email already exists")
	case errors.Is(err, users.ErrNotFound):
		s.errorResponse(c, http.StatusNotFound, "User not found")
	default:
		return false
	}
	return true
}
