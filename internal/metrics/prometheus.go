package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the meeting recorder
type Metrics struct {
	// Capture hand-off metrics
	ChunksReceived  *prometheus.CounterVec
	ChunksDropped   *prometheus.CounterVec
	SamplesBuffered *prometheus.GaugeVec

	// Session metrics
	ActiveSessions    prometheus.Gauge
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsAborted   prometheus.Counter
	RecordingDuration prometheus.Histogram
	MergeDuration     prometheus.Histogram
	MergedBytes       prometheus.Histogram

	// Level metering metrics
	LevelReports prometheus.Counter
	LevelRMS     *prometheus.GaugeVec
	LevelPeak    *prometheus.GaugeVec

	// Speaker mapping metrics
	SpeakerAnalyses   prometheus.Counter
	EchoDetections    prometheus.Counter
	OverlapDetections prometheus.Counter
	MappingConfidence prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all recorder metrics and registers them with the given
// registerer. Pass prometheus.DefaultRegisterer in production; tests use a
// private registry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Capture hand-off metrics
		ChunksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_chunks_received_total",
			Help: "Total number of audio chunks accepted from capture callbacks",
		}, []string{"source"}),
		ChunksDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_chunks_dropped_total",
			Help: "Total number of audio chunks dropped because the hand-off queue was full",
		}, []string{"source"}),
		SamplesBuffered: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "recorder_samples_buffered",
			Help: "Current number of buffered samples per capture source",
		}, []string{"source"}),

		// Session metrics
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "recorder_active_sessions",
			Help: "Current number of active recording sessions",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_completed_total",
			Help: "Total number of recording sessions completed with a merged artifact",
		}),
		SessionsAborted: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_aborted_total",
			Help: "Total number of recording sessions aborted without output",
		}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_recording_duration_seconds",
			Help:    "Wall-clock duration of completed recordings",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5 hours
		}),
		MergeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_merge_duration_seconds",
			Help:    "Time spent flattening, mixing and writing the WAV artifact",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		MergedBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_merged_bytes",
			Help:    "Size of written WAV artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10), // 64KB to ~16GB
		}),

		// Level metering metrics
		LevelReports: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_level_reports_total",
			Help: "Total number of level snapshots flushed to consumers",
		}),
		LevelRMS: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "recorder_level_rms",
			Help: "Most recent averaged RMS level per source (0-100 scale)",
		}, []string{"source"}),
		LevelPeak: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "recorder_level_peak",
			Help: "Most recent peak level per source (0-100 scale)",
		}, []string{"source"}),

		// Speaker mapping metrics
		SpeakerAnalyses: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_speaker_analyses_total",
			Help: "Total number of speaker mapping analyses performed",
		}),
		EchoDetections: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_echo_detections_total",
			Help: "Total number of analyses that flagged cross-stream echo",
		}),
		OverlapDetections: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_overlap_detections_total",
			Help: "Total number of analyses that flagged overlapping speech",
		}),
		MappingConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_mapping_confidence",
			Help:    "Confidence score of speaker mapping results",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recorder_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordChunkReceived counts one accepted capture chunk for the source
func (m *Metrics) RecordChunkReceived(source string) {
	m.ChunksReceived.WithLabelValues(source).Inc()
}

// RecordChunkDropped counts one dropped capture chunk for the source
func (m *Metrics) RecordChunkDropped(source string) {
	m.ChunksDropped.WithLabelValues(source).Inc()
}

// SetSamplesBuffered updates the buffered sample gauge for the source
func (m *Metrics) SetSamplesBuffered(source string, samples int) {
	m.SamplesBuffered.WithLabelValues(source).Set(float64(samples))
}

// SetActiveSessions sets the current number of active sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionStarted increments the sessions started counter
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
}

// RecordSessionCompleted records a completed recording
func (m *Metrics) RecordSessionCompleted(durationSeconds, mergeSeconds float64, mergedBytes int) {
	m.SessionsCompleted.Inc()
	m.RecordingDuration.Observe(durationSeconds)
	m.MergeDuration.Observe(mergeSeconds)
	m.MergedBytes.Observe(float64(mergedBytes))
}

// RecordSessionAborted increments the sessions aborted counter
func (m *Metrics) RecordSessionAborted() {
	m.SessionsAborted.Inc()
}

// RecordLevelReport records one flushed level snapshot for the source
func (m *Metrics) RecordLevelReport(source string, rms, peak float64) {
	m.LevelReports.Inc()
	m.LevelRMS.WithLabelValues(source).Set(rms)
	m.LevelPeak.WithLabelValues(source).Set(peak)
}

// RecordSpeakerAnalysis records one speaker mapping run and its signals
func (m *Metrics) RecordSpeakerAnalysis(confidence float64, echoDetected, overlapDetected bool) {
	m.SpeakerAnalyses.Inc()
	m.MappingConfidence.Observe(confidence)
	if echoDetected {
		m.EchoDetections.Inc()
	}
	if overlapDetected {
		m.OverlapDetections.Inc()
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
