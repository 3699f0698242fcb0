package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/auth"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
	"go.opentelemetry.io/otel/trace"
)

const (
	ctxUserID    = "userID"
	ctxRole      = "role"
	bearerScheme = "Bearer "
)

// TokenVerifier parses access tokens.
type TokenVerifier interface {
	Parse(token string) (*auth.Claims, error)
}

// AuthMiddleware requires a valid bearer token and stores the caller in the context.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerScheme) {
			fail(c, apperr.Unauthorized("Missing or invalid Authorization header"))
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(header[len(bearerScheme):]))
		if err != nil {
			fail(c, apperr.Unauthorized("Invalid or expired token"))
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// actor returns the authenticated caller. AuthMiddleware must have run.
func actor(c *gin.Context) service.Actor {
	role, _ := c.Get(ctxRole)
	r, _ := role.(models.Role)
	return service.Actor{UserID: c.GetInt64(ctxUserID), Role: r}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// requestLogger logs one line per request with the trace ID when one is active.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Log.Info()
		switch {
		case status >= 500:
			event = logger.Log.Error()
		case status >= 400:
			event = logger.Log.Warn()
		}

		event = event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("duration", time.Since(start))
		if id := c.GetInt64(ctxUserID); id != 0 {
			event = event.Str("user_hash", logger.HashUserID(id))
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			event = event.Str("trace_id", sc.TraceID().String())
		}
		event.Msg("HTTP request")
	}
}

// recovery turns a handler panic into a 500 envelope.
func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err, isErr := recovered.(error)
		if !isErr {
			err = fmt.Errorf("panic: %v", recovered)
		}
		fail(c, errors.Join(errors.New("recovered panic"), err))
	})
}
