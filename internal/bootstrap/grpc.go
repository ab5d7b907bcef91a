package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/health"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthServicePrefix = "subtitles."
	healthPollInterval  = 15 * time.Second
)

type HealthChecker interface {
	Check(ctx context.Context) (health.Status, map[string]health.ComponentStatus)
}

// HealthReporter mirrors the readiness checks onto the standard gRPC health
// service. The overall status is served under "" and each component under
// "subtitles.<component>".
type HealthReporter struct {
	checker  HealthChecker
	server   *grpchealth.Server
	interval time.Duration
	logger   *slog.Logger
}

func NewHealthReporter(checker HealthChecker, server *grpchealth.Server, interval time.Duration, logger *slog.Logger) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = healthPollInterval
	}
	return &HealthReporter{
		checker:  checker,
		server:   server,
		interval: interval,
		logger:   logger.With("component", "grpc_health"),
	}
}

func servingStatus(s health.Status) healthpb.HealthCheckResponse_ServingStatus {
	if s == health.StatusUnhealthy {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// Update runs one round of checks and publishes the results.
func (r *HealthReporter) Update(ctx context.Context) health.Status {
	overall, components := r.checker.Check(ctx)
	r.server.SetServingStatus("", servingStatus(overall))
	for name, cs := range components {
		r.server.SetServingStatus(healthServicePrefix+name, servingStatus(cs.Status))
	}
	return overall
}

// Run updates on every tick until ctx is cancelled.
func (r *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	prev := r.Update(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if status := r.Update(ctx); status != prev {
				r.logger.Info("health status changed", "from", prev, "to", status)
				prev = status
			}
		}
	}
}

func NewGRPCServer() *grpc.Server {
	return grpc.NewServer()
}

func ProvideGRPCHealthServer(server *grpc.Server) *grpchealth.Server {
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	return hs
}

func ProvideHealthReporter(h *health.Handler, hs *grpchealth.Server, logger *slog.Logger) *HealthReporter {
	return NewHealthReporter(h, hs, healthPollInterval, logger)
}

func StartGRPCServer(lc fx.Lifecycle, server *grpc.Server, hs *grpchealth.Server, reporter *HealthReporter, cfg *Config, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				cancel()
				return err
			}
			go reporter.Run(ctx)
			go func() {
				logger.Info("gRPC server starting", "addr", cfg.GRPCAddr)
				if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
					logger.Error("gRPC server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			hs.Shutdown()

			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-stopCtx.Done():
				logger.Warn("graceful stop timed out, forcing stop")
				server.Stop()
			}
			return nil
		},
	})
}

var GRPCModule = fx.Options(
	fx.Provide(
		NewGRPCServer,
		ProvideGRPCHealthServer,
		ProvideHealthReporter,
	),
	fx.Invoke(StartGRPCServer),
)
