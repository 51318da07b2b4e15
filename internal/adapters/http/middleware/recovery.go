package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
)

// Recovery turns a panic into a 500 with the standard error body and logs the
// stack. It must be the first middleware so it covers the rest of the chain.
// logger is used until RequestID has put a request-scoped one on the context.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()

			log, ok := logging.Lookup(ctx)
			if !ok {
				log = logger
			}

			log.ErrorContext(ctx, "panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", dto.GetTraceID(c)),
			)

			// A partially written response cannot be replaced.
			if c.Writer.Written() {
				c.Abort()
				return
			}

			dto.RespondWithCode(c, dto.ErrorCodeInternal, "an internal error occurred")
		}()

		c.Next()
	}
}
