package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"blackjack-pool-backend/internal/services"
)

type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenSessionID string) (bool, error)
}

func AuthMiddleware(jwtService *services.JWTService, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				abortUnauthorized(c, "Invalid authorization format")
				return
			}
			tokenString = parts[1]
		} else {
			// browsers cannot set headers on a websocket upgrade
			tokenString = c.Query("token")
			if tokenString == "" {
				abortUnauthorized(c, "Authorization header required")
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		if revocations != nil {
			revoked, err := revocations.IsTokenRevoked(c.Request.Context(), claims.SessionID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Token check failed", "code": "INTERNAL_ERROR"})
				return
			}
			if revoked {
				abortUnauthorized(c, "Token has been revoked")
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)
		if claims.ExpiresAt != nil {
			c.Set("token_expires_at", claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "code": "UNAUTHORIZED"})
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error)
}

func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path

		var action string
		var limit int
		window := time.Minute

		switch {
		case strings.HasSuffix(path, "/deal"):
			action, limit = "deal", services.DefaultRateLimitDeal
		case strings.HasSuffix(path, "/hit"), strings.HasSuffix(path, "/stand"):
			action, limit = "action", services.DefaultRateLimitAction
		default:
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), userID, action, limit, window)
		if err != nil || !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       services.ErrRateLimited.Error(),
				"code":        "RATE_LIMITED",
				"retry_after": window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
