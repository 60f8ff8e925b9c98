// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"diagnostico_backend/platform/config"
	"diagnostico_backend/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// RouterConfig is the config the HTTP router reads.
type RouterConfig interface {
	config.HTTPConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration.
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health lists the backing stores checked by /api/ready. Nil entries are skipped.
	Health map[string]HealthChecker
	// Metrics is the registry served on /metrics. Nil serves the default registry.
	Metrics prometheus.Gatherer
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
