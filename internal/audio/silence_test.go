package audio

import (
	"math/rand"
	"testing"
	"time"
)

func TestDetectSilence_Example(t *testing.T) {
	samples := buildSignal(1000, exampleSpans()...)
	got := DetectSilence(samples, 1000, SilenceOptions{})

	want := []SilenceInterval{{3000, 4000}, {8000, 8500}}
	if len(got) != len(want) {
		t.Fatalf("expected %d silences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("silence %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDetectSilence_ShortRunIgnored(t *testing.T) {
	samples := buildSignal(1000, span{1000, true}, span{499, false}, span{1000, true})
	if got := DetectSilence(samples, 1000, SilenceOptions{}); len(got) != 0 {
		t.Errorf("expected no silences for a 499ms gap, got %v", got)
	}
}

func TestDetectSilence_ExactMinimumCounts(t *testing.T) {
	samples := buildSignal(1000, span{1000, true}, span{500, false}, span{1000, true})
	got := DetectSilence(samples, 1000, SilenceOptions{})
	if len(got) != 1 {
		t.Fatalf("expected 1 silence, got %v", got)
	}
	if got[0].Length() != 500 {
		t.Errorf("expected 500ms silence, got %v", got[0].Length())
	}
}

func TestDetectSilence_TrailingPolicy(t *testing.T) {
	samples := buildSignal(1000, span{2000, true}, span{1000, false})

	tests := []struct {
		name  string
		flush bool
		want  int
	}{
		{name: "open run dropped by default", flush: false, want: 0},
		{name: "open run flushed", flush: true, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectSilence(samples, 1000, SilenceOptions{FlushTrailing: tt.flush})
			if len(got) != tt.want {
				t.Fatalf("expected %d silences, got %v", tt.want, got)
			}
			if tt.flush && (got[0].StartMs != 2000 || got[0].EndMs != 3000) {
				t.Errorf("expected [2000,3000), got %v", got[0])
			}
		})
	}
}

func TestDetectSilence_CustomThreshold(t *testing.T) {
	samples := make([]float32, 2000)
	for i := range samples {
		samples[i] = 0.05
	}
	if got := DetectSilence(samples, 1000, SilenceOptions{Threshold: 0.01, FlushTrailing: true}); len(got) != 0 {
		t.Errorf("0.05 amplitude should be loud at threshold 0.01, got %v", got)
	}
	if got := DetectSilence(samples, 1000, SilenceOptions{Threshold: 0.1, FlushTrailing: true}); len(got) != 1 {
		t.Errorf("0.05 amplitude should be quiet at threshold 0.1, got %v", got)
	}
}

func TestDetectSilence_Empty(t *testing.T) {
	if got := DetectSilence(nil, 16000, SilenceOptions{}); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := DetectSilence([]float32{0, 0}, 0, SilenceOptions{}); got != nil {
		t.Errorf("expected nil for zero sample rate, got %v", got)
	}
}

func TestDetectSilence_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const rate = 1000

	for trial := 0; trial < 50; trial++ {
		samples := make([]float32, 5000+rng.Intn(5000))
		quiet := false
		for i := range samples {
			if rng.Intn(400) == 0 {
				quiet = !quiet
			}
			if quiet {
				samples[i] = float32(rng.Float64()*0.018 - 0.009)
			} else {
				samples[i] = float32(rng.Float64()*1.8 - 0.9)
			}
		}

		threshold := 0.01
		minDur := time.Duration(100+rng.Intn(400)) * time.Millisecond
		got := DetectSilence(samples, rate, SilenceOptions{Threshold: threshold, MinDuration: minDur, FlushTrailing: trial%2 == 0})

		prevEnd := -1.0
		for _, s := range got {
			if s.Length() < float64(minDur.Milliseconds()) {
				t.Fatalf("trial %d: interval %v shorter than %v", trial, s, minDur)
			}
			if s.StartMs < prevEnd {
				t.Fatalf("trial %d: interval %v overlaps previous end %v", trial, s, prevEnd)
			}
			prevEnd = s.EndMs
			for i := int(s.StartMs); i < int(s.EndMs); i++ {
				v := float64(samples[i])
				if v >= threshold || v <= -threshold {
					t.Fatalf("trial %d: sample %d (%v) inside %v is not quiet", trial, i, v, s)
				}
			}
		}
	}
}
