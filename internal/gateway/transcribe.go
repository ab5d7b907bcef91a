package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/audio"
	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/eleven-am/voice-subtitles/internal/subtitle"
	"github.com/eleven-am/voice-subtitles/internal/transcription"
	"github.com/eleven-am/voice-subtitles/internal/usage"
	"github.com/labstack/echo/v4"
)

// Transcribe sends one uploaded file to the transcription service as is.
func (h *Handler) Transcribe(c echo.Context) error {
	cred, err := h.credential(c, c.FormValue("apiKey"), nil)
	if err != nil {
		return err
	}

	file, data, err := h.readUpload(c)
	if err != nil {
		return err
	}
	if !isAudioUpload(file, data) {
		return shared.BadRequest("invalid_file_type", "File must be audio")
	}

	ctx := c.Request().Context()
	entry := h.usage.Begin(ctx, usage.Job{
		Kind:             usage.KindSingle,
		CredentialSource: string(cred.Source),
		RemoteAddr:       c.RealIP(),
		Chunks:           1,
	})

	text, err := h.svc.Transcribe(ctx, data, file.Filename, cred)
	if err != nil {
		entry.Finish(ctx, usage.Outcome{Failed: 1, Err: err})
		kind := transcription.KindOf(err)
		h.metrics.RecordFailure(kind.String())
		h.logger.Warn("transcription failed", "kind", kind.String(), "error", err)
		return shared.NewAPIError(kind.String(), transcription.UserMessage(kind)).ToHTTP(upstreamStatus(err))
	}

	entry.Finish(ctx, usage.Outcome{Succeeded: 1})
	return c.JSON(http.StatusOK, TranscribeResponse{Text: text})
}

// TranscribeChunks transcribes chunks the caller already segmented and
// encoded.
func (h *Handler) TranscribeChunks(c echo.Context) error {
	var req ChunksRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "Invalid request body")
	}

	cred, err := h.credential(c, req.APIKey, &req.IsPasswordVerified)
	if err != nil {
		return err
	}

	chunks, err := decodeChunks(req.Chunks)
	if err != nil {
		return err
	}

	result, err := h.runBatch(c.Request().Context(), c.RealIP(), batchInput{
		kind:           usage.KindChunks,
		chunks:         chunks,
		maxConcurrency: req.MaxConcurrency,
	}, cred)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// TranscribeSegmented runs the whole pipeline server side: decode, detect
// silence, segment, encode, transcribe, filter. With a subtitle format it
// answers with the file instead of JSON.
func (h *Handler) TranscribeSegmented(c echo.Context) error {
	cred, err := h.credential(c, c.FormValue("apiKey"), nil)
	if err != nil {
		return err
	}

	format, err := parseOutputFormat(c.FormValue("format"))
	if err != nil {
		return err
	}

	maxConcurrency, err := formInt(c, "maxConcurrency")
	if err != nil {
		return err
	}

	file, split, err := h.splitUpload(c)
	if err != nil {
		return err
	}
	if len(split.Chunks) == 0 {
		return respond(c, format, batch.NewResult(nil), file.Filename)
	}

	result, err := h.runBatch(c.Request().Context(), c.RealIP(), batchInput{
		kind:           usage.KindSegmented,
		chunks:         split.Chunks,
		maxConcurrency: maxConcurrency,
		audioMs:        split.DurationMs,
	}, cred)
	if err != nil {
		return err
	}

	return respond(c, format, result, file.Filename)
}

func respond(c echo.Context, format subtitle.Format, result batch.Result, filename string) error {
	if format == "" {
		return c.JSON(http.StatusOK, result)
	}
	return renderSubtitles(c, format, result.Chunks, filename)
}

type batchInput struct {
	kind           usage.JobKind
	chunks         []audio.AudioChunk
	maxConcurrency int
	audioMs        float64
	onProgress     func(batch.Progress)
}

func (h *Handler) runBatch(ctx context.Context, remoteAddr string, in batchInput, cred transcription.Credential) (batch.Result, error) {
	if len(in.chunks) == 0 {
		return batch.Result{}, shared.BadRequest("no_chunks", "No audio chunks provided")
	}

	maxConcurrency := in.maxConcurrency
	if maxConcurrency > h.opts.MaxConcurrency {
		maxConcurrency = h.opts.MaxConcurrency
	}

	audioMs := in.audioMs
	if audioMs == 0 {
		for _, ch := range in.chunks {
			audioMs += ch.EndTime - ch.StartTime
		}
	}

	entry := h.usage.Begin(ctx, usage.Job{
		Kind:             in.kind,
		CredentialSource: string(cred.Source),
		RemoteAddr:       remoteAddr,
		Chunks:           len(in.chunks),
		AudioMs:          audioMs,
	})

	raw, err := h.orchestrator.Run(ctx, batch.Job{
		ID:             entry.ID(),
		Chunks:         in.chunks,
		MaxConcurrency: maxConcurrency,
		OnProgress:     in.onProgress,
	}, cred)

	failed := 0
	for _, ch := range raw {
		if batch.IsFailure(ch.Text) {
			failed++
		}
	}
	entry.Finish(ctx, usage.Outcome{Succeeded: len(raw) - failed, Failed: failed, Err: err})

	if err != nil {
		if errors.Is(err, batch.ErrAggregationInconsistency) {
			h.logger.Error("batch aggregation failed", "error", err)
			return batch.Result{}, shared.InternalError("aggregation_failed", "Failed to assemble transcription results")
		}
		h.logger.Warn("batch interrupted", "error", err)
		return batch.Result{}, shared.NewAPIError("request_cancelled", "Request was cancelled").
			ToHTTP(http.StatusServiceUnavailable)
	}

	result := batch.NewResult(raw)
	h.metrics.RecordFiltered(result.OriginalChunks - result.TotalChunks)
	h.logger.Info("transcription complete",
		"job_id", entry.ID(),
		"chunks", result.OriginalChunks,
		"kept", result.TotalChunks,
		"failed", failed)
	return result, nil
}

// decodeChunks validates the wire chunks and decodes their audio.
func decodeChunks(payload []ChunkPayload) ([]audio.AudioChunk, error) {
	if len(payload) == 0 {
		return nil, shared.BadRequest("no_chunks", "No valid audio chunks provided")
	}
	if len(payload) > maxChunksPerRequest {
		return nil, shared.BadRequest("too_many_chunks", fmt.Sprintf("At most %d chunks per request", maxChunksPerRequest))
	}

	seen := make(map[int]struct{}, len(payload))
	chunks := make([]audio.AudioChunk, 0, len(payload))
	for _, p := range payload {
		if _, dup := seen[p.Index]; dup {
			return nil, shared.BadRequest("duplicate_index", fmt.Sprintf("Chunk index %d appears more than once", p.Index))
		}
		seen[p.Index] = struct{}{}

		if p.EndTime <= p.StartTime {
			return nil, shared.BadRequest("invalid_chunk_times", fmt.Sprintf("Chunk %d must end after it starts", p.Index))
		}

		data, err := base64.StdEncoding.DecodeString(p.AudioData)
		if err != nil {
			return nil, shared.BadRequest("invalid_audio_data", fmt.Sprintf("Chunk %d audio is not valid base64", p.Index))
		}
		if len(data) == 0 {
			return nil, shared.BadRequest("invalid_audio_data", fmt.Sprintf("Chunk %d has no audio", p.Index))
		}

		chunks = append(chunks, audio.AudioChunk{
			Index:     p.Index,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Data:      data,
		})
	}
	return chunks, nil
}

func (h *Handler) readUpload(c echo.Context) (*multipart.FileHeader, []byte, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, nil, shared.BadRequest("missing_file", "No audio file provided")
	}
	if file.Size == 0 {
		return nil, nil, shared.BadRequest("empty_file", "Audio file is empty")
	}
	if file.Size > h.opts.MaxUploadBytes {
		return nil, nil, shared.NewAPIError("file_too_large",
			fmt.Sprintf("File too large (max %d MB)", h.opts.MaxUploadBytes/1024/1024)).
			ToHTTP(http.StatusRequestEntityTooLarge)
	}

	src, err := file.Open()
	if err != nil {
		return nil, nil, shared.InternalError("file_error", "Failed to open file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, nil, shared.InternalError("file_error", "Failed to read file")
	}
	return file, data, nil
}

// splitUpload reads the uploaded file and segments it with the per-request
// options.
func (h *Handler) splitUpload(c echo.Context) (*multipart.FileHeader, *audio.Split, error) {
	opts, err := chunkerOptions(c, h.chunker.Options())
	if err != nil {
		return nil, nil, err
	}

	file, data, err := h.readUpload(c)
	if err != nil {
		return nil, nil, err
	}

	split, err := h.chunker.WithOptions(opts).Split(c.Request().Context(), data)
	if err != nil {
		h.metrics.RecordDecode(false)
		h.logger.Warn("audio segmentation failed", "filename", file.Filename, "error", err)
		return nil, nil, audioError(err)
	}
	h.metrics.RecordDecode(true)
	for _, ch := range split.Chunks {
		h.metrics.RecordChunk((ch.EndTime-ch.StartTime)/1000, len(ch.Data))
	}
	return file, split, nil
}

// chunkerOptions overlays the optional form fields, all in milliseconds
// except silenceThreshold, onto base.
func chunkerOptions(c echo.Context, base audio.ChunkerOptions) (audio.ChunkerOptions, error) {
	opts := base

	if v, ok, err := formFloat(c, "minChunkLength"); err != nil {
		return opts, err
	} else if ok {
		opts.Segment.MinChunkLength = msDuration(v)
	}
	if v, ok, err := formFloat(c, "maxChunkLength"); err != nil {
		return opts, err
	} else if ok {
		opts.Segment.MaxChunkLength = msDuration(v)
	}
	if v, ok, err := formFloat(c, "minSilenceDuration"); err != nil {
		return opts, err
	} else if ok {
		opts.Silence.MinDuration = msDuration(v)
	}
	if v, ok, err := formFloat(c, "silenceThreshold"); err != nil {
		return opts, err
	} else if ok {
		if v <= 0 || v >= 1 {
			return opts, shared.BadRequest("invalid_silenceThreshold", "silenceThreshold must be between 0 and 1")
		}
		opts.Silence.Threshold = v
	}
	return opts, nil
}

func formFloat(c echo.Context, name string) (float64, bool, error) {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false, shared.BadRequest("invalid_"+name, name+" must be a non-negative number")
	}
	return v, true, nil
}

func formInt(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, shared.BadRequest("invalid_"+name, name+" must be a non-negative integer")
	}
	return v, nil
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// parseOutputFormat accepts json or a subtitle format. json and empty both
// yield "".
func parseOutputFormat(raw string) (subtitle.Format, error) {
	if raw == "" || strings.EqualFold(raw, "json") {
		return "", nil
	}
	f, err := subtitle.ParseFormat(raw)
	if err != nil {
		return "", shared.BadRequest("invalid_format", "format must be one of json, srt, vtt, txt")
	}
	return f, nil
}

func isAudioUpload(file *multipart.FileHeader, data []byte) bool {
	if strings.HasPrefix(file.Header.Get(echo.HeaderContentType), "audio/") {
		return true
	}
	_, ok := audio.DetectFormat(data)
	return ok
}

// upstreamStatus passes the service's HTTP status through. A timeout with no
// response becomes 504, anything else without a status 500.
func upstreamStatus(err error) int {
	var te *transcription.Error
	if !errors.As(err, &te) {
		return http.StatusInternalServerError
	}
	if te.Status >= 400 && te.Status < 600 {
		return te.Status
	}
	if te.Kind == transcription.KindServiceUnavailable {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
