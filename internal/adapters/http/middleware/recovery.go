package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/ebulter/quote-service/internal/adapters/http/dto"
	"github.com/ebulter/quote-service/internal/platform/logging"
)

// Recovery returns middleware that recovers from panics.
// On panic, it:
//   - Logs the error with full stack trace at ERROR level
//   - Returns a 500 with the sanitized quote-shaped error body
//
// This middleware should be applied first in the chain to catch panics
// from all subsequent handlers and middleware.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()

				// Context logger carries request_id and correlation_id.
				ctxLogger := logging.FromContext(c.Request.Context())

				var traceID string
				if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
					traceID = span.SpanContext().TraceID().String()
				}

				ctxLogger.Error("panic recovered",
					slog.Any("error", r),
					slog.String("stack", string(stack)),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
					slog.String("trace_id", traceID),
				)

				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError,
						dto.NewErrorQuote(dto.MessageInternal))
				} else {
					c.Abort()
				}
			}
		}()

		c.Next()
	}
}
