// Package middleware provides the gin middleware chain: recovery, request and
// correlation IDs, request logging, timeouts, and gateway identity checks.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
)

const (
	// HeaderRequestID identifies one call to the service.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID identifies a whole editorial workflow that may
	// span many requests and services.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin key holding the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin key holding the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

// maxIDLength caps caller-supplied IDs; longer values are replaced.
const maxIDLength = 128

type contextSetter func(ctx context.Context, id string) context.Context

// idHeader describes one inbound ID: where it is read from, where it is kept
// on the gin context, and which request-context setters receive it so the
// REST quote store and the request logger see it.
type idHeader struct {
	header  string
	ginKey  string
	setters []contextSetter
}

var (
	requestIDHeader     = idHeader{HeaderRequestID, ContextKeyRequestID, []contextSetter{ContextWithRequestID, logging.WithRequestID}}
	correlationIDHeader = idHeader{HeaderCorrelationID, ContextKeyCorrelationID, []contextSetter{ContextWithCorrelationID, logging.WithCorrelationID}}
)

// RequestID takes X-Request-ID from the caller or generates one and echoes it
// in the response.
func RequestID() gin.HandlerFunc { return requestIDHeader.handler() }

// CorrelationID propagates X-Correlation-ID from upstream, or starts a new one.
func CorrelationID() gin.HandlerFunc { return correlationIDHeader.handler() }

// GetRequestID returns the request ID, or "" outside the RequestID middleware.
func GetRequestID(c *gin.Context) string { return c.GetString(ContextKeyRequestID) }

// GetCorrelationID returns the correlation ID, or "" outside the
// CorrelationID middleware.
func GetCorrelationID(c *gin.Context) string { return c.GetString(ContextKeyCorrelationID) }

func (h idHeader) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(h.header)
		if !validID(id) {
			id = uuid.NewString()
		}

		c.Set(h.ginKey, id)
		c.Header(h.header, id)

		ctx := c.Request.Context()
		for _, set := range h.setters {
			ctx = set(ctx, id)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// validID accepts non-empty printable ASCII up to maxIDLength so caller
// input cannot break log lines or response headers.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}

	for i := range len(id) {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}

	return true
}
