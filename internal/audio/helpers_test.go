package audio

import "math"

type span struct {
	ms   int
	loud bool
}

// buildSignal renders alternating loud/quiet spans as a mono signal. Loud
// spans are a 0.5 amplitude square wave so no loud sample is near zero.
func buildSignal(rate int, spans ...span) []float32 {
	var out []float32
	for _, s := range spans {
		n := s.ms * rate / 1000
		for i := 0; i < n; i++ {
			if s.loud {
				if i%2 == 0 {
					out = append(out, 0.5)
				} else {
					out = append(out, -0.5)
				}
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// exampleSpans is 12 s of audio with silences at [3000,4000) and [8000,8500).
func exampleSpans() []span {
	return []span{
		{3000, true},
		{1000, false},
		{4000, true},
		{500, false},
		{3500, true},
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
