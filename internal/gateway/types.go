package gateway

import (
	"github.com/eleven-am/voice-subtitles/internal/audio"
	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/shared"
)

type TranscribeResponse struct {
	Text string `json:"text"`
}

// ChunkPayload is one pre-segmented chunk on the wire. AudioData is a base64
// WAV file.
type ChunkPayload struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	AudioData string  `json:"audioData"`
}

type ChunksRequest struct {
	Chunks             []ChunkPayload `json:"chunks"`
	MaxConcurrency     int            `json:"maxConcurrency"`
	APIKey             string         `json:"apiKey"`
	IsPasswordVerified bool           `json:"isPasswordVerified"`
}

type SegmentResponse struct {
	DurationMs float64                 `json:"durationMs"`
	SampleRate int                     `json:"sampleRate"`
	Channels   int                     `json:"channels"`
	Silences   []audio.SilenceInterval `json:"silences"`
	Segments   []audio.SpeechSegment   `json:"segments"`
	Chunks     []ChunkPayload          `json:"chunks"`
}

type SubtitlesRequest struct {
	Chunks   []batch.TranscriptionChunk `json:"chunks"`
	Format   string                     `json:"format"`
	Filename string                     `json:"filename"`
}

type CheckAPIKeyResponse struct {
	HasAPIKey bool `json:"hasApiKey"`
}

type EnvVar struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

type CheckEnvResponse struct {
	HasAPIKey bool     `json:"hasApiKey"`
	Message   string   `json:"message"`
	EnvVars   []EnvVar `json:"envVars"`
}

type TestAPIKeyResponse struct {
	Success   bool    `json:"success"`
	HasAPIKey bool    `json:"hasApiKey"`
	KeyLength int     `json:"keyLength"`
	KeyPrefix *string `json:"keyPrefix"`
}

const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// StreamEvent is one frame sent on the progress websocket.
type StreamEvent struct {
	Type       string           `json:"type"`
	Progress   *batch.Progress  `json:"progress,omitempty"`
	Result     *batch.Result    `json:"result,omitempty"`
	Error      *shared.APIError `json:"error,omitempty"`
	NeedAPIKey bool             `json:"needApiKey,omitempty"`
}
