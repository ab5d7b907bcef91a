package usage

import (
	"context"
	"errors"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/shared"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Job{})
}

func (s *Store) Create(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = shared.NewID("job_")
	}
	if job.Status == "" {
		job.Status = StatusRunning
	}
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *Store) Complete(ctx context.Context, id string, out Outcome, elapsed time.Duration) error {
	status := StatusCompleted
	errText := ""
	if out.Err != nil {
		status = StatusFailed
		errText = out.Err.Error()
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(map[string]any{
		"status":       status,
		"succeeded":    out.Succeeded,
		"failed":       out.Failed,
		"elapsed_ms":   elapsed.Milliseconds(),
		"error":        errText,
		"completed_at": now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Recent returns the newest jobs first, optionally restricted to one kind.
func (s *Store) Recent(ctx context.Context, kind JobKind, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var jobs []*Job
	err := q.Find(&jobs).Error
	return jobs, err
}

// Summary aggregates every job created at or after since.
func (s *Store) Summary(ctx context.Context, since time.Time) (*Summary, error) {
	var sum Summary
	err := s.db.WithContext(ctx).Model(&Job{}).
		Select(`COUNT(*) AS jobs,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed_jobs,
			COALESCE(SUM(chunks), 0) AS chunks,
			COALESCE(SUM(failed), 0) AS failed_chunks,
			COALESCE(SUM(audio_ms), 0) AS audio_ms`, StatusFailed).
		Where("created_at >= ?", since).
		Scan(&sum).Error
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
