package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/eleven-am/voice-subtitles/internal/usage"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	requestWait    = 30 * time.Second
	maxMessageSize = 256 * 1024 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamChunks is the websocket form of TranscribeChunks. The client sends
// one ChunksRequest, then receives a progress event per completed batch and
// a final result or error event. Closing the socket cancels the job.
func (h *Handler) StreamChunks(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return nil
	}
	stream := newProgressStream(ws, h.logger)
	defer stream.close()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(requestWait))

	var req ChunksRequest
	if err := ws.ReadJSON(&req); err != nil {
		stream.fail(shared.BadRequest("invalid_body", "Invalid request message"))
		return nil
	}
	_ = ws.SetReadDeadline(time.Time{})

	cred, err := h.credential(c, req.APIKey, &req.IsPasswordVerified)
	if err != nil {
		stream.fail(err)
		return nil
	}

	chunks, err := decodeChunks(req.Chunks)
	if err != nil {
		stream.fail(err)
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	result, err := h.runBatch(ctx, c.RealIP(), batchInput{
		kind:           usage.KindStream,
		chunks:         chunks,
		maxConcurrency: req.MaxConcurrency,
		onProgress:     stream.progress,
	}, cred)
	if err != nil {
		stream.fail(err)
		return nil
	}

	stream.send(StreamEvent{Type: EventResult, Result: &result})
	return nil
}

type progressStream struct {
	ws     *websocket.Conn
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

func newProgressStream(ws *websocket.Conn, logger *slog.Logger) *progressStream {
	return &progressStream{ws: ws, logger: logger.With("component", "progress_stream")}
}

func (s *progressStream) progress(p batch.Progress) {
	s.send(StreamEvent{Type: EventProgress, Progress: &p})
}

func (s *progressStream) fail(err error) {
	ev := StreamEvent{Type: EventError}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if apiErr, ok := he.Message.(*shared.APIError); ok {
			ev.Error = apiErr
		}
	}
	if ev.Error == nil {
		ev.Error = shared.NewAPIError("internal_error", "Transcription failed")
	}
	ev.NeedAPIKey = ev.Error.Code == "api_key_required"

	s.send(ev)
}

func (s *progressStream) send(ev StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.ws.WriteJSON(ev); err != nil {
		s.logger.Debug("websocket write failed", "type", ev.Type, "error", err)
	}
}

func (s *progressStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = s.ws.Close()
}
