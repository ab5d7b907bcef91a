package batch

import (
	"strings"
)

// FailurePrefix starts every failure marker written into a chunk's text.
const FailurePrefix = "[transcription failed"

func FailureText(err error) string {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return FailurePrefix + ": " + detail + "]"
}

func IsFailure(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), FailurePrefix)
}

// Keep reports whether a chunk carries usable transcript text.
func Keep(c TranscriptionChunk) bool {
	text := strings.TrimSpace(c.Text)
	return text != "" && !IsFailure(text)
}

// Filter drops empty and failed chunks and renumbers the rest densely from
// zero. Order and timestamps are preserved.
func Filter(chunks []TranscriptionChunk) []TranscriptionChunk {
	out := make([]TranscriptionChunk, 0, len(chunks))
	for _, c := range chunks {
		if !Keep(c) {
			continue
		}
		c.Index = len(out)
		out = append(out, c)
	}
	return out
}
