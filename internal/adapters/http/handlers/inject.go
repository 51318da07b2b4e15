package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
)

// Injector places quotes into an article.
type Injector interface {
	Inject(ctx context.Context, req domain.InjectionRequest) (domain.InjectionResult, error)
}

// InjectHandler serves POST /inject-quotes.
type InjectHandler struct {
	injector Injector
	defaults domain.InjectionDefaults
}

// NewInjectHandler creates the handler. defaults fill omitted request fields.
func NewInjectHandler(injector Injector, defaults domain.InjectionDefaults) *InjectHandler {
	if injector == nil {
		panic("inject handler: injector is required")
	}

	return &InjectHandler{injector: injector, defaults: defaults}
}

// Inject decodes the request, runs the engine, and writes the result.
// Degraded outcomes (no candidates, no injection points) are still 200s
// carrying a warning.
func (h *InjectHandler) Inject(c *gin.Context) {
	var body dto.InjectRequest

	if err := dto.BindAndValidate(c, &body); err != nil {
		h.rejectBody(c, err)
		return
	}

	result, err := h.injector.Inject(c.Request.Context(), body.ToDomain(h.defaults))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewInjectResponse(result))
}

func (h *InjectHandler) rejectBody(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr):
		dto.RespondWithCode(c, dto.ErrorCodePayloadTooLarge, "request body too large")

	case dto.IsValidationError(err):
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))

	default:
		ctx := c.Request.Context()
		logging.FromContext(ctx).DebugContext(ctx, "unreadable request body", slog.Any("error", err))
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, "request body must be a JSON object")
	}
}

// RegisterRoutes mounts the handler on rg. Extra middleware (auth, timeout)
// runs in front of it.
func (h *InjectHandler) RegisterRoutes(rg gin.IRoutes, middleware ...gin.HandlerFunc) {
	rg.POST("/inject-quotes", append(slices.Clone(middleware), h.Inject)...)
}
