package api

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/service"
	"errors"
	"net/http"
	"strings"
	"time"

	"cdr.dev/slog/v3"
	"github.com/gin-gonic/gin"
)

// Context key of the authenticated member
const ContextMemberKey = "member"

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		// Parse and validate the token; signature, algorithm and expiry are checked by the service
		member, err := authService.ParseToken(parts[1])
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		// --- Token is valid ---
		// Set member information in the context for downstream handlers
		c.Set(ContextMemberKey, member)
		c.Next()
	}
}

// RequestLogger logs every request after it completes. Server errors are logged at
// error level, everything else at debug.
func RequestLogger(logger slog.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []slog.Field{
			slog.F("method", c.Request.Method),
			slog.F("path", c.FullPath()),
			slog.F("status", c.Writer.Status()),
			slog.F("latency", time.Since(start)),
		}
		// Handlers attach unexpected errors with c.Error before sending a generic 500
		if len(c.Errors) > 0 {
			fields = append(fields, slog.F("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request failed", fields...)
			return
		}
		logger.Debug(c.Request.Context(), "request served", fields...)
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Helper function to get the authenticated member from context (used by handlers)
func getMemberFromContext(c *gin.Context) (domain.MemberContext, error) {
	raw, exists := c.Get(ContextMemberKey)
	if !exists {
		// This should not happen if AuthMiddleware ran correctly
		return domain.MemberContext{}, errors.New("member not found in context")
	}
	member, ok := raw.(domain.MemberContext)
	if !ok {
		// Wrong type set in context is a programming error
		return domain.MemberContext{}, errors.New("invalid member type in context")
	}
	return member, nil
}

// mustMember aborts with 500 when the auth middleware did not run.
func mustMember(c *gin.Context) (domain.MemberContext, bool) {
	member, err := getMemberFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get member from token")
		return domain.MemberContext{}, false
	}
	return member, true
}
