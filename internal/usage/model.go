package usage

import "time"

type JobKind string

const (
	KindSingle    JobKind = "single"
	KindChunks    JobKind = "chunks"
	KindSegmented JobKind = "segmented"
	KindStream    JobKind = "stream"
)

type JobStatus string

const (
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job is one transcription request as recorded in the ledger. Only counts and
// timings are kept; audio and transcript text never reach the database.
type Job struct {
	ID               string     `gorm:"primaryKey" json:"id"`
	Kind             JobKind    `gorm:"not null;index" json:"kind"`
	Status           JobStatus  `gorm:"not null;index" json:"status"`
	CredentialSource string     `gorm:"not null" json:"credential_source"`
	RemoteAddr       string     `json:"remote_addr,omitempty"`
	Chunks           int        `gorm:"not null;default:0" json:"chunks"`
	Succeeded        int        `gorm:"not null;default:0" json:"succeeded"`
	Failed           int        `gorm:"not null;default:0" json:"failed"`
	AudioMs          float64    `gorm:"not null;default:0" json:"audio_ms"`
	ElapsedMs        int64      `gorm:"not null;default:0" json:"elapsed_ms"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type Outcome struct {
	Succeeded int
	Failed    int
	Err       error
}

type Summary struct {
	Jobs         int64   `json:"jobs"`
	FailedJobs   int64   `json:"failed_jobs"`
	Chunks       int64   `json:"chunks"`
	FailedChunks int64   `json:"failed_chunks"`
	AudioMs      float64 `json:"audio_ms"`
}
