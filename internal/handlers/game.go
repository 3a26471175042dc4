package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"blackjack-pool-backend/internal/models"
	"blackjack-pool-backend/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
	logger     zerolog.Logger
}

func NewGameHandler(gameEngine *services.GameEngine, logger zerolog.Logger) *GameHandler {
	return &GameHandler{
		gameEngine: gameEngine,
		logger:     logger.With().Str("component", "game_handler").Logger(),
	}
}

func (h *GameHandler) GetPool(c *gin.Context) {
	pool, err := h.gameEngine.GetPool(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pool":    pool,
		"rules":   h.gameEngine.Rules(),
	})
}

func (h *GameHandler) Deal(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.DealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	view, err := h.gameEngine.Deal(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": view,
	})
}

func (h *GameHandler) Hit(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	view, err := h.gameEngine.Hit(c.Request.Context(), userID, req.SessionID, req.Version)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": view,
	})
}

func (h *GameHandler) Stand(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	view, err := h.gameEngine.Stand(c.Request.Context(), userID, req.SessionID, req.Version)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": view,
	})
}

func (h *GameHandler) GetActiveSession(c *gin.Context) {
	userID := c.GetString("user_id")

	view, err := h.gameEngine.ActiveSession(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": view,
	})
}

func (h *GameHandler) Reveal(c *gin.Context) {
	reveal, err := h.gameEngine.Reveal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reveal":  reveal,
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	userID := c.GetString("user_id")

	balance, err := h.gameEngine.Balance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": balance,
	})
}

func (h *GameHandler) GetGameHistory(c *gin.Context) {
	userID := c.GetString("user_id")

	games, err := h.gameEngine.History(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   games,
		"count":   len(games),
	})
}

func (h *GameHandler) GetLedger(c *gin.Context) {
	entries, err := h.gameEngine.Ledger(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entries": entries,
		"count":   len(entries),
	})
}

func queryLimit(c *gin.Context) int64 {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 || limit > services.MaxHistory {
		return 50
	}
	return limit
}
