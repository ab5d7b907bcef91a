package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/voice-subtitles/internal/audio"
	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/metrics"
	"github.com/eleven-am/voice-subtitles/internal/transcription"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func ProvideTranscriptionConfig(cfg *Config) transcription.Config {
	return transcription.Config{
		BaseURL: cfg.TranscriptionBaseURL,
		Model:   cfg.TranscriptionModel,
		Timeout: cfg.TranscriptionTimeout,
	}
}

func ProvideTranscriptionService(tcfg transcription.Config, logger *slog.Logger) transcription.Service {
	return transcription.NewClient(tcfg, logger)
}

func ProvideOrchestrator(svc transcription.Service, cfg *Config, m *metrics.Metrics, logger *slog.Logger) *batch.Orchestrator {
	// A configured zero means no retries; the orchestrator reads zero as unset.
	retries := cfg.RetryMaxRetries
	if retries == 0 {
		retries = -1
	}
	return batch.New(svc, batch.Options{
		Mode: batch.ParseDispatchMode(cfg.DispatchMode),
		Retry: batch.RetryConfig{
			MaxRetries:     retries,
			BaseDelay:      cfg.RetryBaseDelay,
			RateLimitDelay: cfg.RetryRateLimitDelay,
		},
		DefaultMaxConcurrency: cfg.DefaultMaxConcurrency,
	}, m, logger)
}

func ProvideChunker(cfg *Config, logger *slog.Logger) *audio.Chunker {
	return audio.NewChunker(ChunkerOptions(cfg), logger)
}

// ChunkerOptions maps the segmentation settings onto the chunker.
func ChunkerOptions(cfg *Config) audio.ChunkerOptions {
	return audio.ChunkerOptions{
		Silence: audio.SilenceOptions{
			Threshold:   cfg.SilenceThreshold,
			MinDuration: cfg.MinSilence,
		},
		Segment: audio.SegmentOptions{
			MinChunkLength: cfg.MinChunkLength,
			MaxChunkLength: cfg.MaxChunkLength,
		},
		TargetSampleRate: cfg.TargetSampleRate,
	}
}

var TranscriptionModule = fx.Options(
	fx.Provide(
		ProvideRegistry,
		ProvideMetrics,
		ProvideTranscriptionConfig,
		ProvideTranscriptionService,
		ProvideOrchestrator,
		ProvideChunker,
	),
)
