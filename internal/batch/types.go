package batch

import (
	"errors"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/transcription"
)

const (
	DefaultMaxConcurrency = 4
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = time.Second
)

// ErrAggregationInconsistency means a result slot was left empty or two
// chunks claimed the same index. It indicates a bug, not a bad upstream.
var ErrAggregationInconsistency = errors.New("batch aggregation inconsistency")

// TranscriptionChunk is the text result for one audio chunk. Text holds
// either the transcript or a failure marker.
type TranscriptionChunk struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// Result is the response shape of a batch run. Chunks are filtered and
// reindexed; OriginalChunks counts them before filtering.
type Result struct {
	Chunks         []TranscriptionChunk `json:"chunks"`
	TotalChunks    int                  `json:"totalChunks"`
	OriginalChunks int                  `json:"originalChunks"`
}

func NewResult(raw []TranscriptionChunk) Result {
	filtered := Filter(raw)
	return Result{
		Chunks:         filtered,
		TotalChunks:    len(filtered),
		OriginalChunks: len(raw),
	}
}

type DispatchMode int

const (
	// DispatchBatched runs consecutive batches of MaxConcurrency chunks and
	// waits for a whole batch before starting the next.
	DispatchBatched DispatchMode = iota
	// DispatchPool keeps MaxConcurrency workers busy pulling from a queue.
	DispatchPool
)

func (m DispatchMode) String() string {
	if m == DispatchPool {
		return "pool"
	}
	return "batched"
}

func ParseDispatchMode(s string) DispatchMode {
	if s == "pool" {
		return DispatchPool
	}
	return DispatchBatched
}

// RetryConfig controls per-chunk retries. MaxRetries counts the calls after
// the first, so a chunk is sent at most MaxRetries+1 times. Zero means
// DefaultMaxRetries, a negative value disables retrying.
type RetryConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
}

// Delay is the wait before attempt+1 after attempt failed with kind.
func (r RetryConfig) Delay(attempt int, kind transcription.Kind) time.Duration {
	base := r.BaseDelay
	if kind == transcription.KindRateLimited {
		base = r.RateLimitDelay
	}
	return time.Duration(attempt) * base
}

func normalizeRetry(cfg RetryConfig) RetryConfig {
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = 2 * cfg.BaseDelay
	}
	return cfg
}

// Progress is reported after every batch in batched mode and after every
// chunk in pool mode.
type Progress struct {
	JobID     string `json:"jobId"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Failed    int    `json:"failed"`
	Batch     int    `json:"batch,omitempty"`
	Batches   int    `json:"batches,omitempty"`
}
