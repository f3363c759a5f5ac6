// Command concierged exposes the concierge engine over HTTP: a chat
// endpoint plus session administration, with permissive CORS for the web
// widget. Configuration comes from the environment (.env supported).
package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	concierge "github.com/tripwise/concierge"
	"github.com/tripwise/concierge/config"
	"github.com/tripwise/concierge/logging"
)

type chatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Platform  string `json:"platform"`
	Device    string `json:"device"`
	Language  string `json:"language"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewDefaultSlogLogger()

	engine := concierge.New(func(o *concierge.Options) {
		o.Config = cfg
		o.Logger = logger
	})

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/chat", func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Platform == "" {
			req.Platform = "web_browser"
		}
		if req.Device == "" {
			req.Device = "desktop"
		}
		if req.Language == "" {
			req.Language = "vi"
		}
		resp := engine.ProcessTurn(c.Request.Context(), req.SessionID, req.Message, req.Platform, req.Device, req.Language)
		c.JSON(http.StatusOK, resp)
	})

	router.GET("/api/sessions/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.SessionStats())
	})

	router.DELETE("/api/sessions/:id", func(c *gin.Context) {
		if engine.ClearSession(c.Param("id")) {
			c.JSON(http.StatusOK, gin.H{"cleared": true})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"cleared": false})
	})

	router.DELETE("/api/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"cleared": engine.ClearAllSessions()})
	})

	logger.Info("concierged listening", "addr", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
