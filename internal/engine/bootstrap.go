package engine

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"prettify/internal/config"
	"prettify/internal/logging"
	"prettify/internal/telemetry"
	"prettify/internal/transport"
)

// Bootstrap builds the daemon with metrics on the default registry.
func Bootstrap(ctx context.Context, cfg config.Daemon) (*Engine, error) {
	return bootstrap(ctx, cfg, prometheus.DefaultRegisterer)
}

func bootstrap(ctx context.Context, cfg config.Daemon, reg prometheus.Registerer) (*Engine, error) {
	log := logging.L()

	// 1. tracing
	var shutdown func(context.Context) error
	if cfg.Tracing {
		var err error
		if shutdown, err = telemetry.InitTracer(cfg.Service, log); err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}
	}

	// 2. metrics
	m := telemetry.NewMetrics(reg)
	if cfg.MetricsPort > 0 {
		telemetry.Expose(cfg.MetricsPort)
	}

	// 3. pipeline
	p, err := Compile(ctx, cfg.Spec, m)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// 4. http
	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("http: %w", err)
	}
	log.Info("engine: listening", "addr", lis.Addr().String(), "spec", cfg.Spec)

	return &Engine{
		pipeline: p,
		http:     &http.Server{Handler: transport.NewHTTPHandler(p.Hub)},
		lis:      lis,
		tracing:  shutdown,
	}, nil
}
