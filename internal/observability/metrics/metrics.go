// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_voice_intake"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal  prometheus.Counter
	SessionsActive prometheus.Gauge

	// Caller audio metrics
	FramesSent    prometheus.Counter
	FrameBytes    prometheus.Counter
	FramesDropped prometheus.Counter

	// Agent audio metrics
	ChunksDropped prometheus.Counter
	Interruptions prometheus.Counter

	// Conversation metrics
	TurnsCompleted prometheus.Counter

	// Lead metrics
	LeadsCreated *prometheus.CounterVec

	// Lead delivery metrics
	DeliveryTotal   *prometheus.CounterVec
	DeliveryErrors  *prometheus.CounterVec
	DeliveryLatency *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of intake sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active intake sessions",
		}),

		// Caller audio metrics
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caller_frames_sent_total",
			Help:      "Total caller audio frames forwarded to the speech provider",
		}),
		FrameBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caller_audio_bytes_total",
			Help:      "Total caller audio bytes forwarded to the speech provider",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caller_frames_dropped_total",
			Help:      "Total caller audio frames the provider rejected",
		}),

		// Agent audio metrics
		ChunksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_chunks_dropped_total",
			Help:      "Total malformed agent audio chunks dropped before playback",
		}),
		Interruptions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Total caller barge-ins that flushed queued agent audio",
		}),

		// Conversation metrics
		TurnsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_completed_total",
			Help:      "Total completed conversation turns",
		}),

		// Lead metrics
		LeadsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_created_total",
			Help:      "Total leads delivered downstream",
		}, []string{"case_type", "urgency"}),

		// Lead delivery metrics
		DeliveryTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_delivery_total",
			Help:      "Total lead delivery attempts",
		}, []string{"gateway"}),
		DeliveryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_delivery_errors_total",
			Help:      "Total failed lead delivery attempts",
		}, []string{"gateway"}),
		DeliveryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lead_delivery_latency_seconds",
			Help:      "Lead delivery latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"gateway"}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionClose records a session ending.
func (m *Metrics) RecordSessionClose() {
	m.SessionsActive.Dec()
}

// RecordFrameSent records a caller frame forwarded upstream.
func (m *Metrics) RecordFrameSent(bytes int) {
	m.FramesSent.Inc()
	m.FrameBytes.Add(float64(bytes))
}

// RecordFrameDropped records a caller frame the provider rejected.
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordChunkDropped records a malformed agent audio chunk.
func (m *Metrics) RecordChunkDropped() {
	m.ChunksDropped.Inc()
}

// RecordInterruption records a caller barge-in.
func (m *Metrics) RecordInterruption() {
	m.Interruptions.Inc()
}

// RecordTurnComplete records a completed conversation turn.
func (m *Metrics) RecordTurnComplete() {
	m.TurnsCompleted.Inc()
}

// RecordLeadCreated records a lead delivered downstream.
func (m *Metrics) RecordLeadCreated(caseType, urgency string) {
	m.LeadsCreated.WithLabelValues(caseType, urgency).Inc()
}

// RecordLeadDelivery records a lead delivery attempt.
func (m *Metrics) RecordLeadDelivery(gateway string, err error, latencySeconds float64) {
	m.DeliveryTotal.WithLabelValues(gateway).Inc()
	m.DeliveryLatency.WithLabelValues(gateway).Observe(latencySeconds)
	if err != nil {
		m.DeliveryErrors.WithLabelValues(gateway).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
