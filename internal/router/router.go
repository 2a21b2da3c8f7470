package router

import (
	"net/http"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/handler"
	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for session starts and submits (30 per minute per IP):
	// both consume quota or write results, so bursts are suspect.
	writeLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Session Group (JWT) ────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(cfg.JWTSecret))
	{
		api.POST("/exams/:exam_id/eligibility", handlers.Session.CheckEligibility)

		api.POST("/exams/:exam_id/session", writeLimiter.Middleware(), handlers.Session.StartSession)
		api.GET("/exams/:exam_id/session", handlers.Session.GetSession)
		api.DELETE("/exams/:exam_id/session", handlers.Session.DetachSession)

		api.POST("/exams/:exam_id/session/answers", handlers.Session.SelectAnswer)
		api.POST("/exams/:exam_id/session/position", handlers.Session.Navigate)
		api.POST("/exams/:exam_id/session/submit", writeLimiter.Middleware(), handlers.Session.SubmitSession)
	}

	// ─── 2. WebSocket Group (JWT via ?token) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireJWT(cfg.JWTSecret))
	{
		ws.GET("/exams/:exam_id/stream", handlers.WS.SessionStream)
	}

	return router
}
