package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

// ErrorResponse is the error body PostgREST returns. Code is either a
// PostgreSQL SQLSTATE or a PGRST-prefixed PostgREST code.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// Codes with a specific domain meaning. Anything else falls back to the status.
const (
	// CodeNoRows is PostgREST's "JSON object requested, multiple (or no) rows returned".
	CodeNoRows = "PGRST116"
	// CodeJWTInvalid covers rejected or expired API keys.
	CodeJWTInvalid = "PGRST301"
	// CodeUndefinedFunction means the RPC has not been created.
	CodeUndefinedFunction = "PGRST202"
	// CodeInvalidText is SQLSTATE 22P02, e.g. a malformed uuid filter.
	CodeInvalidText = "22P02"
	// CodeInsufficientPrivilege is SQLSTATE 42501, a row-level security denial.
	CodeInsufficientPrivilege = "42501"
)

var statusText = map[int]string{
	http.StatusNotFound:           "resource not found",
	http.StatusUnauthorized:       "authentication required",
	http.StatusForbidden:          "access denied",
	http.StatusTooManyRequests:    "rate limit exceeded",
	http.StatusServiceUnavailable: "service temporarily unavailable",
}

// exchange names one call to the store API so failures can say which.
type exchange struct {
	service   string
	operation string
	entityID  string
}

// ParseErrorResponse decodes an error body. It returns nil if the body is
// empty, not JSON, or carries neither a code nor a message.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var e ErrorResponse
	if json.NewDecoder(body).Decode(&e) != nil || (e.Code == "" && e.Message == "") {
		return nil
	}

	return &e
}

// MapHTTPError maps a failed exchange with the store API to a domain error.
// clientErr covers transport failures, an open circuit, and exhausted
// retries. Otherwise a known code in the body wins over the HTTP status.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation, entityID string) error {
	return exchange{serviceName, operation, entityID}.failure(resp, clientErr)
}

// MapExternalCode maps a PostgREST or SQLSTATE code to a domain error.
// It returns nil for codes without a specific meaning.
func MapExternalCode(code, message, serviceName, operation, entityID string) error {
	return exchange{serviceName, operation, entityID}.codeFailure(code, message)
}

func (x exchange) failure(resp *http.Response, clientErr error) error {
	switch {
	case clientErr != nil:
		return x.transportFailure(clientErr)
	case resp == nil:
		return x.unavailable("no response received")
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	}

	body := ParseErrorResponse(resp.Body)
	if body != nil {
		if err := x.codeFailure(body.Code, body.Message); err != nil {
			return err
		}
	}

	// Only a missing row on a per-id call means something to the engine. On a
	// list query a 404 is a wrong base URL or a missing table, and a rejected
	// query is our own misconfiguration, so the caller sees the store as down.
	if resp.StatusCode == http.StatusNotFound && x.entityID != "" {
		return domain.NewNotFoundError(entityType, x.entityID)
	}

	if body != nil && body.Message != "" {
		return x.unavailable(body.Message)
	}

	if text, ok := statusText[resp.StatusCode]; ok {
		return x.unavailable(text)
	}

	return x.unavailable(fmt.Sprintf("%s failed with status %d", x.operation, resp.StatusCode))
}

func (x exchange) transportFailure(err error) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return x.unavailable("circuit breaker open during " + x.operation)
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return x.unavailable("max retries exceeded during " + x.operation)
	default:
		return x.unavailable(fmt.Sprintf("%s failed: %v", x.operation, err))
	}
}

func (x exchange) codeFailure(code, message string) error {
	switch code {
	case CodeNoRows, CodeInvalidText:
		if x.entityID == "" {
			return nil
		}

		return domain.NewNotFoundError(entityType, x.entityID)
	case CodeJWTInvalid, CodeInsufficientPrivilege:
		return x.unavailable(fmt.Sprintf("credentials rejected during %s: %s", x.operation, message))
	case CodeUndefinedFunction:
		return x.unavailable("usage function missing: " + message)
	default:
		return nil
	}
}

func (x exchange) unavailable(reason string) error {
	return domain.NewUnavailableError(x.service, reason)
}
