package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subtitles"

// Metrics holds every collector the service exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	// Segmentation
	FilesDecoded    prometheus.Counter
	DecodeFailures  prometheus.Counter
	ChunksGenerated prometheus.Counter
	ChunkDuration   prometheus.Histogram
	ChunkSize       prometheus.Histogram

	// Orchestration
	BatchJobs             prometheus.Counter
	CallsInFlight         prometheus.Gauge
	TranscriptionAttempts prometheus.Counter
	TranscriptionRetries  *prometheus.CounterVec
	TranscriptionFailures *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	ChunksFiltered        prometheus.Counter

	// HTTP API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on reg. A nil reg leaves them unregistered.
func New(reg *prometheus.Registry) *Metrics {
	var (
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if reg != nil {
		registerer = reg
		gatherer = reg
	}
	factory := promauto.With(registerer)

	return &Metrics{
		registry: gatherer,

		FilesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_decoded_total",
			Help:      "Total number of uploaded files decoded to PCM",
		}),
		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Total number of uploads rejected as undecodable or invalid",
		}),
		ChunksGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_generated_total",
			Help:      "Total number of audio chunks produced by the segmenter",
		}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Duration of generated audio chunks",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		ChunkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_size_bytes",
			Help:      "Size of encoded audio chunks in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 14),
		}),

		BatchJobs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_jobs_total",
			Help:      "Total number of batch transcription jobs run",
		}),
		CallsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcription_calls_in_flight",
			Help:      "Transcription calls currently awaiting a response",
		}),
		TranscriptionAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_attempts_total",
			Help:      "Total number of transcription service calls",
		}),
		TranscriptionRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_retries_total",
			Help:      "Total number of retried transcription calls by failure kind",
		}, []string{"kind"}),
		TranscriptionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_failures_total",
			Help:      "Chunks that ended with a failure marker, by failure kind",
		}, []string{"kind"}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Duration of single transcription calls",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ChunksFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_filtered_total",
			Help:      "Chunks dropped from results as empty or failed",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordDecode(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.FilesDecoded.Inc()
	} else {
		m.DecodeFailures.Inc()
	}
}

func (m *Metrics) RecordChunk(durationSeconds float64, sizeBytes int) {
	if m == nil {
		return
	}
	m.ChunksGenerated.Inc()
	m.ChunkDuration.Observe(durationSeconds)
	m.ChunkSize.Observe(float64(sizeBytes))
}

func (m *Metrics) RecordBatchJob() {
	if m == nil {
		return
	}
	m.BatchJobs.Inc()
}

// CallStarted marks one transcription call as in flight.
func (m *Metrics) CallStarted() {
	if m == nil {
		return
	}
	m.TranscriptionAttempts.Inc()
	m.CallsInFlight.Inc()
}

func (m *Metrics) CallFinished(durationSeconds float64) {
	if m == nil {
		return
	}
	m.CallsInFlight.Dec()
	m.TranscriptionDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordRetry(kind string) {
	if m == nil {
		return
	}
	m.TranscriptionRetries.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordFailure(kind string) {
	if m == nil {
		return
	}
	m.TranscriptionFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordFiltered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ChunksFiltered.Add(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
