package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"blackjack-pool-backend/internal/services"
)

type UserHandler struct {
	redisService *services.RedisService
	gameEngine   *services.GameEngine
	jwtService   *services.JWTService
	logger       zerolog.Logger
}

func NewUserHandler(redisService *services.RedisService, gameEngine *services.GameEngine, jwtService *services.JWTService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		redisService: redisService,
		gameEngine:   gameEngine,
		jwtService:   jwtService,
		logger:       logger.With().Str("component", "user_handler").Logger(),
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetString("user_id")

	balance, err := h.gameEngine.Balance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := gin.H{
		"user_id":        userID,
		"session_id":     c.GetString("session_id"),
		"balance":        balance,
		"active_session": nil,
	}

	if view, err := h.gameEngine.ActiveSession(c.Request.Context(), userID); err == nil {
		response["active_session"] = view
	}

	c.JSON(http.StatusOK, response)
}

// Logout revokes the presented token until it would have expired anyway.
func (h *UserHandler) Logout(c *gin.Context) {
	sessionID := c.GetString("session_id")
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found", "code": CodeUnauthorized})
		return
	}

	ttl := time.Until(c.GetTime("token_expires_at"))
	if err := h.redisService.RevokeToken(c.Request.Context(), sessionID, ttl); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// IssueDevToken mints a token for any user id. Only routed outside
// production, where tokens come from the platform's auth service.
func (h *UserHandler) IssueDevToken(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	token, err := h.jwtService.GenerateToken(req.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
