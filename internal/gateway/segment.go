package gateway

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/eleven-am/voice-subtitles/internal/subtitle"
	"github.com/labstack/echo/v4"
)

// Segment runs silence detection and encoding only. The returned chunks can
// be posted unchanged to transcribe-chunks.
func (h *Handler) Segment(c echo.Context) error {
	_, split, err := h.splitUpload(c)
	if err != nil {
		return err
	}

	chunks := make([]ChunkPayload, len(split.Chunks))
	for i, ch := range split.Chunks {
		chunks[i] = ChunkPayload{
			Index:     ch.Index,
			StartTime: ch.StartTime,
			EndTime:   ch.EndTime,
			AudioData: base64.StdEncoding.EncodeToString(ch.Data),
		}
	}

	return c.JSON(http.StatusOK, SegmentResponse{
		DurationMs: split.DurationMs,
		SampleRate: split.SampleRate,
		Channels:   split.Channels,
		Silences:   nonNil(split.Silences),
		Segments:   nonNil(split.Segments),
		Chunks:     chunks,
	})
}

// Subtitles renders transcription chunks the caller already holds.
func (h *Handler) Subtitles(c echo.Context) error {
	var req SubtitlesRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "Invalid request body")
	}

	format, err := subtitle.ParseFormat(req.Format)
	if err != nil {
		return shared.BadRequest("invalid_format", "format must be one of srt, vtt, txt")
	}
	return renderSubtitles(c, format, req.Chunks, req.Filename)
}

func renderSubtitles(c echo.Context, format subtitle.Format, chunks []batch.TranscriptionChunk, filename string) error {
	body, err := subtitle.Render(format, chunks)
	if err != nil {
		return shared.BadRequest("invalid_format", err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, subtitle.Filename(filename, format)))
	return c.Blob(http.StatusOK, format.ContentType(), []byte(body))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
