// Package handlers provides the HTTP handlers: quote injection and the
// operational /-/ endpoints.
package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

// BuildInfo describes the running binary. The first three fields come from -ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// NewBuildInfo fills GoVersion from the runtime.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

// HealthHandler serves the /-/ health routes, build info, and Prometheus metrics.
type HealthHandler struct {
	registry  ports.HealthRegistry
	buildInfo BuildInfo

	metrics      *prometheus.Registry
	dependencyUp *prometheus.GaugeVec
}

// NewHealthHandler creates the handler with its own Prometheus registry holding
// Go runtime, process, build info and per-dependency readiness series.
func NewHealthHandler(registry ports.HealthRegistry, buildInfo BuildInfo) *HealthHandler {
	reg := prometheus.NewRegistry()

	buildGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quote_injection_build_info",
		Help: "Build information; the value is always 1.",
	}, []string{"version", "commit", "go_version"})
	buildGauge.WithLabelValues(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion).Set(1)

	dependencyUp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quote_injection_dependency_up",
		Help: "Result of the last readiness check per dependency (1 healthy, 0 unhealthy).",
	}, []string{"check"})

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildGauge,
		dependencyUp,
	)

	return &HealthHandler{
		registry:     registry,
		buildInfo:    buildInfo,
		metrics:      reg,
		dependencyUp: dependencyUp,
	}
}

type livenessResponse struct {
	Status string `json:"status"`
}

// Liveness always answers 200 while the process runs. It checks no dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, livenessResponse{Status: "ok"})
}

type readinessResponse struct {
	Status string                        `json:"status"`
	Checks map[string]*ports.CheckResult `json:"checks,omitempty"`
}

// Readiness runs every registered check, including the quote store, and
// answers 503 if any failed.
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.registry.CheckAll(c.Request.Context())
	h.recordChecks(result.Checks)

	status := http.StatusOK
	if result.Status == ports.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, readinessResponse{Status: string(result.Status), Checks: result.Checks})
}

func (h *HealthHandler) recordChecks(checks map[string]*ports.CheckResult) {
	for name, check := range checks {
		var up float64
		if check.Status == ports.HealthStatusHealthy {
			up = 1
		}

		h.dependencyUp.WithLabelValues(name).Set(up)
	}
}

// Build serves the version the binary was stamped with.
func (h *HealthHandler) Build(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}

// Metrics exposes the handler's Prometheus registry in text format.
func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.HandlerFor(h.metrics, promhttp.HandlerOpts{Registry: h.metrics})
}

// RegisterRoutes mounts live, ready, build and metrics under /-/.
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	ops := r.Group("/-")
	ops.GET("/live", h.Liveness)
	ops.GET("/ready", h.Readiness)
	ops.GET("/build", h.Build)
	ops.GET("/metrics", gin.WrapH(h.Metrics()))
}
