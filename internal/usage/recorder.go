package usage

import (
	"context"
	"log/slog"
	"time"
)

// Recorder writes ledger entries on behalf of request handlers. Ledger
// failures are logged and never surface to the caller. A nil Recorder or one
// without a store records nothing.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger.With("component", "usage")}
}

// Entry is an open ledger record. Finish closes it exactly once.
type Entry struct {
	rec     *Recorder
	id      string
	started time.Time
}

func (r *Recorder) Begin(ctx context.Context, job Job) *Entry {
	e := &Entry{rec: r, started: time.Now()}
	if r == nil || r.store == nil {
		return e
	}
	if err := r.store.Create(ctx, &job); err != nil {
		r.logger.Warn("failed to record job", "kind", job.Kind, "error", err)
		return e
	}
	e.id = job.ID
	return e
}

func (e *Entry) ID() string {
	if e == nil {
		return ""
	}
	return e.id
}

func (e *Entry) Finish(ctx context.Context, out Outcome) {
	if e == nil || e.id == "" {
		return
	}
	if err := e.rec.store.Complete(context.WithoutCancel(ctx), e.id, out, time.Since(e.started)); err != nil {
		e.rec.logger.Warn("failed to complete job", "job_id", e.id, "error", err)
	}
	e.id = ""
}
