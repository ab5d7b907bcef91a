package transcription

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Client calls an OpenAI-compatible /audio/transcriptions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = normalizeConfig(cfg)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With("component", "transcription"),
	}
}

func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string, cred Credential) (string, error) {
	if cred.Empty() {
		return "", &Error{Kind: KindUnauthorized, Message: ErrCredentialMissing.Error(), Err: ErrCredentialMissing}
	}
	if len(audio) == 0 {
		return "", &Error{Kind: KindBadRequest, Message: "empty audio"}
	}
	if filename == "" {
		filename = "audio.wav"
	}

	resp, err := c.api(cred).CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.Model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		terr := classify(err)
		c.logger.Debug("transcription call failed",
			"filename", filename,
			"kind", terr.Kind.String(),
			"status", terr.Status,
			"error", err)
		return "", terr
	}

	return strings.TrimSpace(resp.Text), nil
}

func (c *Client) api(cred Credential) *openai.Client {
	config := openai.DefaultConfig(cred.Key)
	config.BaseURL = strings.TrimRight(c.cfg.BaseURL, "/")
	config.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(config)
}

func classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.HTTPStatusCode)
		}
		return &Error{
			Kind:    KindFromStatus(apiErr.HTTPStatusCode),
			Status:  apiErr.HTTPStatusCode,
			Message: msg,
			Err:     err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{
			Kind:    KindFromStatus(reqErr.HTTPStatusCode),
			Status:  reqErr.HTTPStatusCode,
			Message: http.StatusText(reqErr.HTTPStatusCode),
			Err:     err,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindServiceUnavailable, Message: "request timed out", Err: err}
	}

	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}

// UserMessage is the caller-facing text for a failed single-shot request.
func UserMessage(kind Kind) string {
	switch kind {
	case KindBadRequest:
		return "invalid request parameters"
	case KindUnauthorized:
		return "invalid API key"
	case KindNotFound:
		return "resource not found"
	case KindRateLimited:
		return "too many requests, please try again later"
	case KindServiceUnavailable:
		return "service unavailable or request timed out, please try again later"
	default:
		return "transcription failed"
	}
}
