package audio

import "time"

const (
	DefaultSilenceThreshold = 0.01
	DefaultMinSilence       = 500 * time.Millisecond
)

type SilenceOptions struct {
	// Threshold is the absolute amplitude below which a sample counts as quiet.
	Threshold float64
	// MinDuration is the shortest quiet run reported as silence.
	MinDuration time.Duration
	// FlushTrailing reports a qualifying quiet run that is still open when the
	// buffer ends. Off by default: a trailing quiet run stays part of the
	// last speech segment.
	FlushTrailing bool
}

func (o SilenceOptions) withDefaults() SilenceOptions {
	if o.Threshold <= 0 {
		o.Threshold = DefaultSilenceThreshold
	}
	if o.MinDuration <= 0 {
		o.MinDuration = DefaultMinSilence
	}
	return o
}

// DetectSilence scans one channel once and returns the quiet runs of at least
// MinDuration, ascending and non-overlapping.
func DetectSilence(samples []float32, sampleRate int, opts SilenceOptions) []SilenceInterval {
	if sampleRate <= 0 || len(samples) == 0 {
		return nil
	}
	opts = opts.withDefaults()

	minSamples := opts.MinDuration.Seconds() * float64(sampleRate)
	threshold := float32(opts.Threshold)
	toMs := func(i int) float64 {
		return float64(i) / float64(sampleRate) * 1000
	}

	var regions []SilenceInterval
	silenceStart := -1

	for i, s := range samples {
		quiet := s < threshold && s > -threshold

		if quiet && silenceStart == -1 {
			silenceStart = i
		} else if !quiet && silenceStart != -1 {
			if float64(i-silenceStart) >= minSamples {
				regions = append(regions, SilenceInterval{StartMs: toMs(silenceStart), EndMs: toMs(i)})
			}
			silenceStart = -1
		}
	}

	if opts.FlushTrailing && silenceStart != -1 {
		if float64(len(samples)-silenceStart) >= minSamples {
			regions = append(regions, SilenceInterval{StartMs: toMs(silenceStart), EndMs: toMs(len(samples))})
		}
	}

	return regions
}
