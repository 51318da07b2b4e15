package postgres

import (
	"context"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

// HealthChecker reports whether the database answers a ping.
type HealthChecker struct {
	db Pinger
}

// NewHealthChecker creates a readiness check over db.
func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{db: db}
}

// Name implements ports.HealthChecker.
func (h *HealthChecker) Name() string {
	return ServiceName
}

// Check implements ports.HealthChecker.
func (h *HealthChecker) Check(ctx context.Context) error {
	if err := h.db.Ping(ctx); err != nil {
		return domain.NewUnavailableError(ServiceName, err.Error())
	}

	return nil
}
