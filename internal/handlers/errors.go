package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"blackjack-pool-backend/internal/services"
)

const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeInvalidBet            = "INVALID_BET"
	CodeInsufficientBalance   = "INSUFFICIENT_BALANCE"
	CodeSessionConflict       = "SESSION_CONFLICT"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeSessionNotActive      = "SESSION_NOT_ACTIVE"
	CodeInsufficientLiquidity = "INSUFFICIENT_LIQUIDITY"
	CodeFairnessViolation     = "FAIRNESS_VIOLATION"
	CodeEngineInvariant       = "ENGINE_INVARIANT_VIOLATION"
	CodeRateLimited           = "RATE_LIMITED"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInternal              = "INTERNAL_ERROR"
)

// errorStatus maps an engine error to its HTTP status and taxonomy code.
// Order matters: the bet errors all wrap ErrInvalidBet.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusBadRequest, CodeInsufficientBalance
	case errors.Is(err, services.ErrInvalidBet):
		return http.StatusBadRequest, CodeInvalidBet
	case errors.Is(err, services.ErrSessionConflict):
		return http.StatusConflict, CodeSessionConflict
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, services.ErrSessionNotActive):
		return http.StatusConflict, CodeSessionNotActive
	case errors.Is(err, services.ErrInsufficientLiquidity):
		return http.StatusServiceUnavailable, CodeInsufficientLiquidity
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, services.ErrFairnessViolation):
		return http.StatusInternalServerError, CodeFairnessViolation
	case errors.Is(err, services.ErrEngineInvariant):
		return http.StatusInternalServerError, CodeEngineInvariant
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	status, code := errorStatus(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", code).Str("path", c.FullPath()).Msg("request failed")
		if code == CodeInternal {
			message = "internal error"
		}
	}

	c.JSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"code":  CodeInvalidRequest,
	})
}
