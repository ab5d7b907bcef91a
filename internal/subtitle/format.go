package subtitle

import (
	"fmt"
	"math"
	"strings"

	"github.com/eleven-am/voice-subtitles/internal/batch"
)

type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatText Format = "txt"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	case FormatText, "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatSRT:
		return "application/x-subrip; charset=utf-8"
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Timestamp renders ms as HH:MM:SS<sep>mmm. Fractional and negative input is
// floored to whole non-negative milliseconds.
func Timestamp(ms float64, sep byte) string {
	total := int64(math.Floor(ms))
	if total < 0 {
		total = 0
	}
	hours := total / 3600000
	minutes := total % 3600000 / 60000
	seconds := total % 60000 / 1000
	millis := total % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, millis)
}

func cues(chunks []batch.TranscriptionChunk) []batch.TranscriptionChunk {
	out := make([]batch.TranscriptionChunk, 0, len(chunks))
	for _, c := range chunks {
		if batch.Keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func SRT(chunks []batch.TranscriptionChunk) string {
	valid := cues(chunks)
	blocks := make([]string, len(valid))
	for i, c := range valid {
		blocks[i] = fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, Timestamp(c.StartTime, ','), Timestamp(c.EndTime, ','), strings.TrimSpace(c.Text))
	}
	return strings.Join(blocks, "\n")
}

func VTT(chunks []batch.TranscriptionChunk) string {
	valid := cues(chunks)
	blocks := make([]string, len(valid))
	for i, c := range valid {
		blocks[i] = fmt.Sprintf("%s --> %s\n%s\n",
			Timestamp(c.StartTime, '.'), Timestamp(c.EndTime, '.'), strings.TrimSpace(c.Text))
	}
	return "WEBVTT\n\n" + strings.Join(blocks, "\n")
}

func PlainText(chunks []batch.TranscriptionChunk) string {
	valid := cues(chunks)
	texts := make([]string, len(valid))
	for i, c := range valid {
		texts[i] = strings.TrimSpace(c.Text)
	}
	return strings.Join(texts, " ")
}

func Render(f Format, chunks []batch.TranscriptionChunk) (string, error) {
	switch f {
	case FormatSRT:
		return SRT(chunks), nil
	case FormatVTT:
		return VTT(chunks), nil
	case FormatText:
		return PlainText(chunks), nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q", string(f))
	}
}

// Filename returns base with its extension replaced for f.
func Filename(base string, f Format) string {
	if base == "" {
		base = "transcript"
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base + f.Extension()
}
