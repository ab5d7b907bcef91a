package audio

import (
	"context"
	"fmt"
	"log/slog"
)

type ChunkerOptions struct {
	Silence SilenceOptions
	Segment SegmentOptions
	// TargetSampleRate resamples every chunk before encoding. Zero keeps the
	// source rate.
	TargetSampleRate int
}

// Split is everything produced from one source file.
type Split struct {
	Chunks     []AudioChunk
	Segments   []SpeechSegment
	Silences   []SilenceInterval
	DurationMs float64
	SampleRate int
	Channels   int
}

type Chunker struct {
	opts   ChunkerOptions
	logger *slog.Logger
}

func NewChunker(opts ChunkerOptions, logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{
		opts:   opts,
		logger: logger.With("component", "chunker"),
	}
}

func (c *Chunker) Options() ChunkerOptions {
	return c.opts
}

// WithOptions returns a chunker sharing the logger but using opts.
func (c *Chunker) WithOptions(opts ChunkerOptions) *Chunker {
	return &Chunker{opts: opts, logger: c.logger}
}

// Split decodes data and cuts it into encoded chunks. Decoding failures abort
// before any segmentation work.
func (c *Chunker) Split(ctx context.Context, data []byte) (*Split, error) {
	buf, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return c.SplitBuffer(ctx, buf)
}

func (c *Chunker) SplitBuffer(ctx context.Context, buf *SampleBuffer) (*Split, error) {
	duration := buf.DurationMs()
	silences := DetectSilence(buf.Channels[0], buf.SampleRate, c.opts.Silence)
	segments := SegmentSpeech(duration, silences, c.opts.Segment)

	chunks, err := EncodeSegments(ctx, buf, segments, c.opts.TargetSampleRate)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("audio split",
		"duration_ms", duration,
		"sample_rate", buf.SampleRate,
		"channels", buf.NumChannels(),
		"silences", len(silences),
		"segments", len(segments),
		"chunks", len(chunks))

	return &Split{
		Chunks:     chunks,
		Segments:   segments,
		Silences:   silences,
		DurationMs: duration,
		SampleRate: buf.SampleRate,
		Channels:   buf.NumChannels(),
	}, nil
}

// EncodeSegments slices buf per segment and encodes each slice as WAV.
// Segments too short to hold a single frame are skipped; chunk indices stay
// dense and chronological.
func EncodeSegments(ctx context.Context, buf *SampleBuffer, segments []SpeechSegment, targetRate int) ([]AudioChunk, error) {
	chunks := make([]AudioChunk, 0, len(segments))
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slice := buf.Slice(seg.StartMs, seg.EndMs)
		if slice.Len() == 0 {
			continue
		}
		slice = ResampleBuffer(slice, targetRate)

		data, err := EncodeWAV(slice)
		if err != nil {
			return nil, fmt.Errorf("encode segment %d: %w", seg.Index, err)
		}

		chunks = append(chunks, AudioChunk{
			Index:     len(chunks),
			StartTime: seg.StartMs,
			EndTime:   seg.EndMs,
			Data:      data,
		})
	}
	return chunks, nil
}
