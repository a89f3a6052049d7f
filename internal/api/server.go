// Package api is the gin HTTP surface: request schemas, route wiring,
// error mapping and CORS.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"speakwall/internal/auth"
	"speakwall/internal/config"
	"speakwall/internal/logger"
	"speakwall/internal/pipeline"
	"speakwall/internal/repository"
	"speakwall/internal/storage"
	"speakwall/internal/utils"
)

// Server holds the handlers' collaborators.
type Server struct {
	cfg     *config.Config
	pipe    *pipeline.Pipeline
	store   repository.Store
	objects storage.Store
	signer  *auth.Signer
	log     *logger.Logger
}

func NewServer(cfg *config.Config, pipe *pipeline.Pipeline, store repository.Store, objects storage.Store, signer *auth.Signer) *Server {
	return &Server{
		cfg:     cfg,
		pipe:    pipe,
		store:   store,
		objects: objects,
		signer:  signer,
		log:     logger.New(),
	}
}

// RegisterRoutes wires all routes onto r.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		utils.Error(c, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.Use(corsMiddleware())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	grp := r.Group("/api")
	{
		grp.POST("/recordings", s.registerRecording)
		grp.POST("/analyze", s.analyzeRecording)
		grp.POST("/recommendations", s.generateRecommendations)
		grp.POST("/presign", s.presignUpload)
		grp.POST("/billing/webhook", s.billingWebhook)
	}

	sessions := grp.Group("/sessions", auth.Required(s.signer))
	{
		sessions.GET("", s.listSessions)
		sessions.GET("/export", s.exportSessions)
		sessions.GET("/:id", s.getSession)
	}
}

// corsMiddleware mirrors the permissive cross-origin policy the hosted
// frontend relies on.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	utils.JSON(c, http.StatusOK, gin.H{
		"status":  "ok",
		"service": "speakwall-backend",
	})
}
