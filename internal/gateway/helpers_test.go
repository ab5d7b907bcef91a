package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/audio"
	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/eleven-am/voice-subtitles/internal/transcription"
	"github.com/labstack/echo/v4"
)

// stubService answers "text <n>" for chunk_<n>.wav and fails the indices in
// fail with a terminal error.
type stubService struct {
	mu    sync.Mutex
	keys  []string
	fail  map[int]error
	err   error
	delay time.Duration
}

func (s *stubService) Transcribe(ctx context.Context, data []byte, filename string, cred transcription.Credential) (string, error) {
	s.mu.Lock()
	s.keys = append(s.keys, cred.Key)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", s.err
	}

	var n int
	if _, err := fmt.Sscanf(filename, "chunk_%d.wav", &n); err != nil {
		return "single " + filename, nil
	}
	if err, ok := s.fail[n]; ok {
		return "", err
	}
	return fmt.Sprintf(" text %d ", n), nil
}

func (s *stubService) usedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

type stubSessions bool

func (v stubSessions) Verified(echo.Context) bool { return bool(v) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, svc transcription.Service, sessions SessionVerifier, opts Options) *Handler {
	t.Helper()
	orch := batch.New(svc, batch.Options{
		Retry: batch.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond},
	}, nil, discardLogger())
	chunker := audio.NewChunker(audio.ChunkerOptions{}, discardLogger())
	return NewHandler(svc, orch, chunker, sessions, nil, nil, opts, discardLogger())
}

// toneWAV renders alternating tone and silence spans, in milliseconds, as a
// mono 8 kHz WAV. Spans at even positions are tone.
func toneWAV(t *testing.T, spans ...int) []byte {
	t.Helper()
	const rate = 8000
	var samples []float32
	for i, ms := range spans {
		n := ms * rate / 1000
		for j := 0; j < n; j++ {
			if i%2 == 0 {
				samples = append(samples, float32(0.5*math.Sin(2*math.Pi*440*float64(j)/rate))+0.2)
			} else {
				samples = append(samples, 0)
			}
		}
	}
	buf, err := audio.NewSampleBuffer([][]float32{samples}, rate)
	if err != nil {
		t.Fatalf("NewSampleBuffer: %v", err)
	}
	data, err := audio.EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return data
}

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func jsonContext(e *echo.Echo, method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartContext(t *testing.T, e *echo.Echo, target string, file *formFile, fields map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if file != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, file.name))
		hdr.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		_, _ = part.Write(file.data)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// httpError asserts err is an *echo.HTTPError carrying an APIError.
func httpError(t *testing.T, err error, wantStatus int) *shared.APIError {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != wantStatus {
		t.Fatalf("status = %d, want %d", he.Code, wantStatus)
	}
	apiErr, ok := he.Message.(*shared.APIError)
	if !ok {
		t.Fatalf("expected *shared.APIError message, got %T", he.Message)
	}
	return apiErr
}
