package audio

import "time"

const DefaultMaxChunkLength = 30 * time.Second

type SegmentOptions struct {
	// MinChunkLength drops shorter speech intervals. Zero keeps everything.
	MinChunkLength time.Duration
	// MaxChunkLength splits longer intervals into fixed slices. Zero means
	// DefaultMaxChunkLength, a negative value disables splitting.
	MaxChunkLength time.Duration
}

func (o SegmentOptions) withDefaults() SegmentOptions {
	if o.MaxChunkLength == 0 {
		o.MaxChunkLength = DefaultMaxChunkLength
	}
	if o.MinChunkLength < 0 {
		o.MinChunkLength = 0
	}
	return o
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// SegmentSpeech takes the complement of the silences over [0, duration),
// drops intervals shorter than MinChunkLength and slices intervals longer than
// MaxChunkLength at fixed boundaries. Indices follow output order.
func SegmentSpeech(totalMs float64, silences []SilenceInterval, opts SegmentOptions) []SpeechSegment {
	opts = opts.withDefaults()

	var speech []SpeechSegment
	lastEnd := 0.0
	for _, s := range silences {
		if s.StartMs > lastEnd {
			speech = append(speech, SpeechSegment{StartMs: lastEnd, EndMs: s.StartMs})
		}
		lastEnd = s.EndMs
	}
	if lastEnd < totalMs {
		speech = append(speech, SpeechSegment{StartMs: lastEnd, EndMs: totalMs})
	}

	minMs := durationMs(opts.MinChunkLength)
	maxMs := durationMs(opts.MaxChunkLength)

	final := make([]SpeechSegment, 0, len(speech))
	for _, region := range speech {
		length := region.Length()
		if length < minMs {
			continue
		}

		if maxMs > 0 && length > maxMs {
			for start := region.StartMs; start < region.EndMs; {
				end := min(start+maxMs, region.EndMs)
				final = append(final, SpeechSegment{StartMs: start, EndMs: end})
				start = end
			}
			continue
		}
		final = append(final, region)
	}

	for i := range final {
		final[i].Index = i
	}
	return final
}
