package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/audio"
	"github.com/eleven-am/voice-subtitles/internal/metrics"
	"github.com/eleven-am/voice-subtitles/internal/transcription"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Mode                  DispatchMode
	Retry                 RetryConfig
	DefaultMaxConcurrency int
}

// Job is one orchestration call. It lives only for the duration of Run.
type Job struct {
	ID             string
	Chunks         []audio.AudioChunk
	MaxConcurrency int
	OnProgress     func(Progress)
}

// Orchestrator sends audio chunks to a transcription service with bounded
// concurrency. A failing chunk never fails the job: its text becomes a
// failure marker and the remaining chunks proceed.
type Orchestrator struct {
	svc     transcription.Service
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(svc transcription.Service, opts Options, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Retry = normalizeRetry(opts.Retry)
	if opts.DefaultMaxConcurrency <= 0 {
		opts.DefaultMaxConcurrency = DefaultMaxConcurrency
	}
	return &Orchestrator{
		svc:     svc,
		opts:    opts,
		metrics: m,
		logger:  logger.With("component", "orchestrator"),
	}
}

func (o *Orchestrator) Options() Options {
	return o.opts
}

// WithMode returns an orchestrator sharing everything but the dispatch mode.
func (o *Orchestrator) WithMode(mode DispatchMode) *Orchestrator {
	cp := *o
	cp.opts.Mode = mode
	return &cp
}

// Concurrency clamps a requested limit to [1, n].
func (o *Orchestrator) Concurrency(requested, n int) int {
	c := requested
	if c <= 0 {
		c = o.opts.DefaultMaxConcurrency
	}
	if c > n {
		c = n
	}
	if c < 1 {
		c = 1
	}
	return c
}

// run is the per-job state shared by the dispatch loops.
type run struct {
	job     Job
	cred    transcription.Credential
	chunks  []audio.AudioChunk
	data    [][]byte
	slots   []TranscriptionChunk
	filled  []bool
	mu      sync.Mutex
	emitMu  sync.Mutex
	done    int
	failed  int
	batches int
}

// Run transcribes every chunk of job and returns one result per chunk in
// ascending index order. Results are written into a slot per position, so
// completion order never affects output order. If ctx ends early, chunks not
// yet sent are marked failed and ctx's error is returned with the results.
func (o *Orchestrator) Run(ctx context.Context, job Job, cred transcription.Credential) ([]TranscriptionChunk, error) {
	n := len(job.Chunks)
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if n == 0 {
		return []TranscriptionChunk{}, nil
	}

	chunks := make([]audio.AudioChunk, n)
	copy(chunks, job.Chunks)
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

	r := &run{
		job:    job,
		cred:   cred,
		chunks: chunks,
		data:   make([][]byte, n),
		slots:  make([]TranscriptionChunk, n),
		filled: make([]bool, n),
	}
	for i, c := range chunks {
		r.data[i] = c.Data
		r.chunks[i].Data = nil
	}

	c := o.Concurrency(job.MaxConcurrency, n)
	o.metrics.RecordBatchJob()
	o.logger.Info("starting batch transcription",
		"job_id", job.ID,
		"chunks", n,
		"concurrency", c,
		"mode", o.opts.Mode.String(),
		"credential_source", string(cred.Source))

	start := time.Now()
	if o.opts.Mode == DispatchPool {
		o.dispatchPool(ctx, r, c)
	} else {
		o.dispatchBatched(ctx, r, c)
	}

	if err := verify(r); err != nil {
		o.logger.Error("batch aggregation failed", "job_id", job.ID, "error", err)
		return nil, err
	}

	o.logger.Info("batch transcription complete",
		"job_id", job.ID,
		"chunks", n,
		"failed", r.failed,
		"duration_ms", time.Since(start).Milliseconds())

	if err := ctx.Err(); err != nil {
		return r.slots, fmt.Errorf("batch %s interrupted: %w", job.ID, err)
	}
	return r.slots, nil
}

func (o *Orchestrator) dispatchBatched(ctx context.Context, r *run, c int) {
	n := len(r.chunks)
	r.batches = (n + c - 1) / c

	for start, batchNum := 0, 1; start < n; start, batchNum = start+c, batchNum+1 {
		end := min(start+c, n)

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				o.process(ctx, r, i)
				return nil
			})
		}
		_ = g.Wait()

		o.logger.Debug("batch complete", "job_id", r.job.ID, "batch", batchNum, "batches", r.batches)
		o.report(r, batchNum)
	}
}

// dispatchPool keeps up to c chunks in flight. g.Go blocks while the limit
// is reached, so a chunk starts as soon as any other finishes.
func (o *Orchestrator) dispatchPool(ctx context.Context, r *run, c int) {
	var g errgroup.Group
	g.SetLimit(c)
	for i := range r.chunks {
		i := i
		g.Go(func() error {
			o.process(ctx, r, i)
			o.report(r, 0)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) process(ctx context.Context, r *run, pos int) {
	chunk := r.chunks[pos]

	r.mu.Lock()
	data := r.data[pos]
	r.data[pos] = nil
	r.mu.Unlock()

	text, err := o.transcribe(ctx, chunk.Index, data, r.cred)
	if err != nil {
		kind := transcription.KindOf(err)
		o.metrics.RecordFailure(kind.String())
		o.logger.Warn("chunk transcription failed",
			"job_id", r.job.ID,
			"chunk", chunk.Index,
			"kind", kind.String(),
			"error", err)
		text = FailureText(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled[pos] {
		return
	}
	r.slots[pos] = TranscriptionChunk{
		Index:     chunk.Index,
		StartTime: chunk.StartTime,
		EndTime:   chunk.EndTime,
		Text:      strings.TrimSpace(text),
	}
	r.filled[pos] = true
	r.done++
	if err != nil {
		r.failed++
	}
}

// transcribe makes up to MaxRetries+1 calls. Only rate-limited and
// unavailable responses are retried, after attempt*base of waiting.
func (o *Orchestrator) transcribe(ctx context.Context, index int, data []byte, cred transcription.Credential) (string, error) {
	retry := o.opts.Retry
	filename := fmt.Sprintf("chunk_%d.wav", index)

	attempts := retry.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return "", lastErr
			}
			return "", err
		}

		started := time.Now()
		o.metrics.CallStarted()
		text, err := o.svc.Transcribe(ctx, data, filename, cred)
		o.metrics.CallFinished(time.Since(started).Seconds())
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !transcription.IsRetryable(err) || attempt == attempts {
			break
		}

		kind := transcription.KindOf(err)
		delay := retry.Delay(attempt, kind)
		o.metrics.RecordRetry(kind.String())
		o.logger.Debug("retrying chunk",
			"chunk", index,
			"attempt", attempt,
			"max_retries", retry.MaxRetries,
			"kind", kind.String(),
			"delay", delay)

		if err := wait(ctx, delay); err != nil {
			return "", lastErr
		}
	}
	return "", lastErr
}

func (o *Orchestrator) report(r *run, batchNum int) {
	if r.job.OnProgress == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	p := Progress{
		JobID:     r.job.ID,
		Completed: r.done,
		Total:     len(r.chunks),
		Failed:    r.failed,
		Batch:     batchNum,
		Batches:   r.batches,
	}
	r.mu.Unlock()

	r.job.OnProgress(p)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func verify(r *run) error {
	for pos, ok := range r.filled {
		if !ok {
			return fmt.Errorf("%w: no result for position %d", ErrAggregationInconsistency, pos)
		}
		if pos > 0 && r.slots[pos].Index <= r.slots[pos-1].Index {
			return fmt.Errorf("%w: index %d collides with its predecessor", ErrAggregationInconsistency, r.slots[pos].Index)
		}
	}
	return nil
}
