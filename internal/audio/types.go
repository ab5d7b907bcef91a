package audio

import (
	"fmt"
	"math"
)

// SampleBuffer holds decoded audio as one normalized float slice per channel.
// It is not modified after decoding.
type SampleBuffer struct {
	Channels   [][]float32
	SampleRate int
}

func NewSampleBuffer(channels [][]float32, sampleRate int) (*SampleBuffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("sample buffer needs at least one channel")
	}
	n := len(channels[0])
	for i, ch := range channels {
		if len(ch) != n {
			return nil, fmt.Errorf("channel %d has %d samples, expected %d", i, len(ch), n)
		}
	}
	return &SampleBuffer{Channels: channels, SampleRate: sampleRate}, nil
}

func (b *SampleBuffer) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of sample frames.
func (b *SampleBuffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

func (b *SampleBuffer) DurationMs() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate) * 1000
}

// SampleIndex converts a millisecond offset to a frame index, flooring.
func (b *SampleBuffer) SampleIndex(ms float64) int {
	return int(math.Floor(ms / 1000 * float64(b.SampleRate)))
}

// Slice copies the frames covering [startMs, endMs) from every channel into a
// new buffer with the same channel count and sample rate.
func (b *SampleBuffer) Slice(startMs, endMs float64) *SampleBuffer {
	start := clampIndex(b.SampleIndex(startMs), b.Len())
	end := clampIndex(b.SampleIndex(endMs), b.Len())
	if end < start {
		end = start
	}

	channels := make([][]float32, len(b.Channels))
	for c, src := range b.Channels {
		dst := make([]float32, end-start)
		copy(dst, src[start:end])
		channels[c] = dst
	}
	return &SampleBuffer{Channels: channels, SampleRate: b.SampleRate}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

type SilenceInterval struct {
	StartMs float64 `json:"start"`
	EndMs   float64 `json:"end"`
}

func (s SilenceInterval) Length() float64 {
	return s.EndMs - s.StartMs
}

type SpeechSegment struct {
	Index   int     `json:"index"`
	StartMs float64 `json:"start"`
	EndMs   float64 `json:"end"`
}

func (s SpeechSegment) Length() float64 {
	return s.EndMs - s.StartMs
}

// AudioChunk is one segment re-encoded as a standalone WAV file.
type AudioChunk struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Data      []byte  `json:"-"`
}
