package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/examrunner/internal/config"
	"github.com/stemsi/examrunner/internal/handler"
	"github.com/stemsi/examrunner/internal/middleware"
	"github.com/stemsi/examrunner/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures the REST and WebSocket routes.
func SetupRouter(
	sessions middleware.SessionLookup,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log can carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Session REST API ───────────────────────────────────────────
	api := router.Group("/api/v1/sessions")
	{
		api.POST("", handlers.Session.CreateSession)

		one := api.Group("/:session_id")
		one.Use(middleware.LoadSession(sessions))
		{
			one.GET("", handlers.Session.GetSession)
			one.POST("/start", handlers.Session.Start)
			one.POST("/answer", handlers.Session.SelectOption)
			one.DELETE("/answer", handlers.Session.ClearResponse)
			one.POST("/next", handlers.Session.Next)
			one.POST("/previous", handlers.Session.Previous)
			one.POST("/mark", handlers.Session.MarkForReview)
			one.POST("/jump", handlers.Session.JumpTo)
			one.POST("/finish", handlers.Session.Finish)
			one.GET("/result", handlers.Session.GetResult)
		}
	}

	// ─── 2. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws/v1/sessions/:session_id")
	ws.Use(middleware.LoadSession(sessions))
	{
		ws.GET("/stream", handlers.WS.SessionStream)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
