package dto

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
)

// ContextKeyTraceID is a gin context key that overrides the trace ID in error bodies.
const ContextKeyTraceID = "trace_id"

const requestIDHeader = "X-Request-ID"

// GetTraceID returns the ID callers can quote when reporting an error: the
// OpenTelemetry trace ID when a span is recording, else a trace_id set on the
// gin context, else the request ID header.
func GetTraceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	if v, ok := c.Get(ContextKeyTraceID); ok {
		if id, ok := v.(string); ok {
			return id
		}

		return ""
	}

	return c.GetHeader(requestIDHeader)
}

// MapDomainError maps a domain error to an HTTP status and error body.
// Unknown errors become a 500 with a generic message so internals never leak.
// An expired request deadline is a 504 whichever layer observed it.
func MapDomainError(err error) (int, *ErrorResponse) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewErrorResponse(ErrorCodeTimeout, "request timeout exceeded")

	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsConflict(err):
		return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, err.Error())

	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Details = map[string]string{validationErr.Field: validationErr.Message}
		}

		return http.StatusBadRequest, resp

	case domain.IsUnavailable(err):
		// Only the typed error's text; wrapped driver causes stay in the log.
		msg := "a dependency is unavailable"

		var unavailableErr *domain.UnavailableError
		if errors.As(err, &unavailableErr) {
			msg = unavailableErr.Error()
		}

		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, msg)

	default:
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
	}
}

// HandleError writes the response for err. 5xx errors are logged with the
// underlying cause, which the body deliberately omits for 500s.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.WithTraceID(GetTraceID(c))

	if status >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		logging.FromContext(ctx).ErrorContext(ctx, "request failed",
			slog.Int("status", status),
			slog.String("code", resp.Code),
			slog.Any("error", err),
		)
	}

	c.AbortWithStatusJSON(status, resp)
}

// RespondWithCode writes an error body for an adapter-level failure such as
// an unreadable body.
func RespondWithCode(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(HTTPStatusFromCode(code),
		NewErrorResponse(code, message).WithTraceID(GetTraceID(c)))
}

// RespondWithValidationErrors writes a 400 with field-level messages.
func RespondWithValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed", fieldErrors).
			WithTraceID(GetTraceID(c)))
}
