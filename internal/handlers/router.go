package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"blackjack-pool-backend/internal/middleware"
	"blackjack-pool-backend/internal/services"
)

type RouterConfig struct {
	Env          string
	GameEngine   *services.GameEngine
	RedisService *services.RedisService
	JWTService   *services.JWTService
	Hub          *WebSocketHub
	Logger       zerolog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.CORS())

	gameHandler := NewGameHandler(cfg.GameEngine, cfg.Logger)
	userHandler := NewUserHandler(cfg.RedisService, cfg.GameEngine, cfg.JWTService, cfg.Logger)
	wsHandler := NewWebSocketHandler(cfg.GameEngine, cfg.Hub, cfg.Logger)

	router.GET("/health", func(c *gin.Context) {
		if err := cfg.RedisService.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Env != "production" {
		router.POST("/auth/dev-token", userHandler.IssueDevToken)
	}

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.JWTService, cfg.RedisService))
	protected.Use(middleware.RateLimitMiddleware(cfg.RedisService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		blackjack := protected.Group("/blackjack")
		{
			blackjack.GET("/pool", gameHandler.GetPool)
			blackjack.POST("/deal", gameHandler.Deal)
			blackjack.POST("/hit", gameHandler.Hit)
			blackjack.POST("/stand", gameHandler.Stand)

			blackjack.GET("/session", gameHandler.GetActiveSession)
			blackjack.GET("/sessions/:id/reveal", gameHandler.Reveal)
			blackjack.GET("/balance", gameHandler.GetBalance)
			blackjack.GET("/history", gameHandler.GetGameHistory)
			blackjack.GET("/ledger", gameHandler.GetLedger)
			blackjack.GET("/ws", wsHandler.HandleWebSocket)
		}
	}

	return router
}
