package intake

import (
	"context"

	apphttp "diagnostico_backend/internal/http"
	"diagnostico_backend/platform/httpkit"
	"diagnostico_backend/platform/logger"
)

// Module is the intake bounded context implementing http.Module.
type Module struct {
	handler *Handler
	limiter httpkit.KeyLimiter
	metrics *Metrics
	log     *logger.Logger
}

// NewModule wires the submission endpoints. limiter guards both routes per client IP.
func NewModule(svc Submitter, limiter httpkit.KeyLimiter, publicBaseURL string, metrics *Metrics, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(svc, publicBaseURL),
		limiter: limiter,
		metrics: metrics,
		log:     log,
	}
}

func (m *Module) Name() string {
	return "intake"
}

// RegisterRoutes mounts the form endpoint at /api/submit and its versioned
// alias at /api/v1/submissions.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	limit := httpkit.RateLimit(countingLimiter{next: m.limiter, metrics: m.metrics}, m.log, msgRateLimited)

	ctx.API.POST("/submit", limit, m.handler.Submit)
	m.handler.RegisterRoutes(ctx.V1.Group("/submissions", limit))
}

// countingLimiter records rejected requests before they reach the pipeline.
type countingLimiter struct {
	next    httpkit.KeyLimiter
	metrics *Metrics
}

func (l countingLimiter) Allow(ctx context.Context, key string) bool {
	if l.next.Allow(ctx, key) {
		return true
	}
	l.metrics.observeRateLimited()
	return false
}

var _ apphttp.Module = (*Module)(nil)
