package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/eleven-am/voice-subtitles/internal/audio"
	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/metrics"
	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/eleven-am/voice-subtitles/internal/transcription"
	"github.com/eleven-am/voice-subtitles/internal/usage"
	"github.com/labstack/echo/v4"
)

const (
	defaultMaxUploadBytes = 100 * 1024 * 1024
	defaultMaxConcurrency = 16
	maxChunksPerRequest   = 2000
	apiKeyHeader          = "X-API-Key"
	serverKeyEnv          = "SILICONFLOW_API_KEY"
)

type Options struct {
	ServerAPIKey string
	// MaxUploadBytes caps multipart uploads.
	MaxUploadBytes int64
	// MaxConcurrency caps the maxConcurrency a caller may request.
	MaxConcurrency int
	// Environ lists the process environment for check-env.
	Environ func() []string
}

// SessionVerifier reports whether a request carries a password-verified
// session.
type SessionVerifier interface {
	Verified(c echo.Context) bool
}

type Handler struct {
	svc          transcription.Service
	orchestrator *batch.Orchestrator
	chunker      *audio.Chunker
	sessions     SessionVerifier
	usage        *usage.Recorder
	metrics      *metrics.Metrics
	opts         Options
	logger       *slog.Logger
}

func NewHandler(
	svc transcription.Service,
	orchestrator *batch.Orchestrator,
	chunker *audio.Chunker,
	sessions SessionVerifier,
	recorder *usage.Recorder,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}
	return &Handler{
		svc:          svc,
		orchestrator: orchestrator,
		chunker:      chunker,
		sessions:     sessions,
		usage:        recorder,
		metrics:      m,
		opts:         opts,
		logger:       logger.With("handler", "gateway"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/transcribe", h.Transcribe)
	g.POST("/transcribe-chunks", h.TranscribeChunks)
	g.GET("/transcribe-chunks/ws", h.StreamChunks)
	g.POST("/transcribe-segmented", h.TranscribeSegmented)
	g.POST("/segment", h.Segment)
	g.POST("/subtitles", h.Subtitles)
	g.GET("/check-api-key", h.CheckAPIKey)
	g.GET("/check-env", h.CheckEnv)
	g.GET("/test-api-key", h.TestAPIKey)
}

// credential resolves the key for this request. The caller's key comes from
// the body or the X-API-Key header. The server key needs a verified session,
// and when claimedVerified is non-nil the caller must also claim it.
func (h *Handler) credential(c echo.Context, explicitKey string, claimedVerified *bool) (transcription.Credential, error) {
	if explicitKey == "" {
		explicitKey = c.Request().Header.Get(apiKeyHeader)
	}

	verified := false
	if explicitKey == "" && h.opts.ServerAPIKey != "" && h.sessions != nil {
		verified = h.sessions.Verified(c)
		if claimedVerified != nil && !*claimedVerified {
			verified = false
		}
	}

	cred, err := transcription.ResolveCredential(explicitKey, verified, h.opts.ServerAPIKey)
	if err != nil {
		return cred, needAPIKey()
	}
	return cred, nil
}

func needAPIKey() *echo.HTTPError {
	return shared.NewAPIError("api_key_required", "No API key provided").
		WithDetails(map[string]bool{"needApiKey": true}).
		ToHTTP(http.StatusBadRequest)
}

// audioError maps a chunker failure to the response the caller sees.
func audioError(err error) *echo.HTTPError {
	var de *audio.DecodeError
	switch {
	case errors.As(err, &de):
		return shared.UnprocessableEntity("decode_failed", "Audio could not be decoded").
			WithInternal(err)
	case audio.IsValidationError(err):
		return shared.BadRequest("invalid_audio", err.Error())
	default:
		return shared.InternalError("segmentation_failed", "Failed to segment audio")
	}
}
