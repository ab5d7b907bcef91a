package bootstrap

import (
	"log/slog"
	"os"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/audio"
	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/gateway"
	"github.com/eleven-am/voice-subtitles/internal/metrics"
	"github.com/eleven-am/voice-subtitles/internal/session"
	"github.com/eleven-am/voice-subtitles/internal/transcription"
	"github.com/eleven-am/voice-subtitles/internal/usage"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	GatewayHandler *gateway.Handler
	SessionHandler *session.Handler
	UsageHandler   *usage.Handler
	Metrics        *metrics.Metrics
	Config         *Config
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	e.Use(gateway.Metrics(params.Metrics))
	e.GET("/metrics", echo.WrapHandler(params.Metrics.Handler()))

	api := e.Group("/api")
	api.Use(gateway.RateLimiter(gateway.RateLimiterConfig{
		RequestsPerSecond: params.Config.RateLimitRPS,
		Burst:             params.Config.RateLimitBurst,
		CleanupInterval:   5 * time.Minute,
	}))

	params.GatewayHandler.RegisterRoutes(api)
	params.SessionHandler.RegisterRoutes(api)
	params.UsageHandler.RegisterRoutes(api)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideGatewayHandler(
	svc transcription.Service,
	orchestrator *batch.Orchestrator,
	chunker *audio.Chunker,
	verifier *session.Verifier,
	recorder *usage.Recorder,
	m *metrics.Metrics,
	cfg *Config,
	logger *slog.Logger,
) *gateway.Handler {
	return gateway.NewHandler(svc, orchestrator, chunker, verifier, recorder, m, gateway.Options{
		ServerAPIKey:   cfg.ServerAPIKey,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxConcurrency: cfg.MaxConcurrency,
	}, logger)
}

func ProvideSessionHandler(verifier *session.Verifier, cfg *Config, logger *slog.Logger) *session.Handler {
	return session.NewHandler(verifier, cfg.AccessPassword, logger)
}

func ProvideUsageHandler(store *usage.Store, logger *slog.Logger) *usage.Handler {
	return usage.NewHandler(store, logger)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideGatewayHandler,
		ProvideSessionHandler,
		ProvideUsageHandler,
	),
	fx.Invoke(RegisterRoutes),
)
