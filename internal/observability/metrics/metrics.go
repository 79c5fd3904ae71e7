// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinical_ehr_bridge"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// FHIR document metrics
	DocumentsBuilt      *prometheus.CounterVec
	DocumentBuildErrors *prometheus.CounterVec
	ValidationFailures  prometheus.Counter
	ValidationRuleHits  *prometheus.CounterVec

	// HL7 message metrics
	MessagesBuilt      *prometheus.CounterVec
	MessageBuildErrors *prometheus.CounterVec

	// EHR submission metrics
	EHRSubmissions       *prometheus.CounterVec
	EHRSubmissionLatency *prometheus.HistogramVec
	TokenRefreshes       *prometheus.CounterVec

	// MLLP metrics
	MLLPSends      *prometheus.CounterVec
	MLLPSendErrors prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Transcription metrics
	TranscriptionRequests *prometheus.CounterVec
	TranscriptionLatency  *prometheus.HistogramVec
	UtterancesExtracted   prometheus.Counter
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		DocumentsBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_built_total",
			Help:      "Total number of FHIR DocumentReference resources built",
		}, []string{"doc_type"}),
		DocumentBuildErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_build_errors_total",
			Help:      "Total number of failed DocumentReference builds",
		}, []string{"reason"}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fhir_validation_failures_total",
			Help:      "Total number of resources rejected by the R4 validator",
		}),
		ValidationRuleHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fhir_validation_violations_total",
			Help:      "Total number of individual R4 rule violations reported",
		}, []string{"rule"}),

		MessagesBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hl7_messages_built_total",
			Help:      "Total number of HL7v2 messages built",
		}, []string{"message_type"}),
		MessageBuildErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hl7_message_build_errors_total",
			Help:      "Total number of failed HL7v2 message builds",
		}, []string{"message_type"}),

		EHRSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ehr_submissions_total",
			Help:      "Total number of DocumentReference submissions to an EHR",
		}, []string{"system", "outcome"}),
		EHRSubmissionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ehr_submission_latency_seconds",
			Help:      "EHR submission round-trip latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"system"}),
		TokenRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ehr_token_refreshes_total",
			Help:      "Total number of OAuth2 token acquisitions",
		}, []string{"system", "outcome"}),

		MLLPSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mllp_sends_total",
			Help:      "Total number of HL7 messages sent over MLLP",
		}, []string{"message_type"}),
		MLLPSendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mllp_send_errors_total",
			Help:      "Total number of failed MLLP sends",
		}),

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

		TranscriptionRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_requests_total",
			Help:      "Total number of batch transcription requests",
		}, []string{"provider", "outcome"}),
		TranscriptionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Batch transcription latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		UtterancesExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_extracted_total",
			Help:      "Total number of diarized utterances extracted",
		}),
	}
}

// RecordDocumentBuilt records a successful DocumentReference build.
func (m *Metrics) RecordDocumentBuilt(docType string) {
	m.DocumentsBuilt.WithLabelValues(docType).Inc()
}

// RecordDocumentBuildError records a failed DocumentReference build.
func (m *Metrics) RecordDocumentBuildError(reason string) {
	m.DocumentBuildErrors.WithLabelValues(reason).Inc()
}

// RecordValidationFailure records a resource rejected by the validator along
// with the number of individual violations it carried.
func (m *Metrics) RecordValidationFailure(violations int) {
	m.ValidationFailures.Inc()
	m.ValidationRuleHits.WithLabelValues("all").Add(float64(violations))
}

// RecordMessageBuilt records a successful HL7 message build.
func (m *Metrics) RecordMessageBuilt(messageType string) {
	m.MessagesBuilt.WithLabelValues(messageType).Inc()
}

// RecordMessageBuildError records a failed HL7 message build.
func (m *Metrics) RecordMessageBuildError(messageType string) {
	m.MessageBuildErrors.WithLabelValues(messageType).Inc()
}

// RecordEHRSubmission records a DocumentReference submission attempt.
func (m *Metrics) RecordEHRSubmission(system string, err error, latencySeconds float64) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.EHRSubmissions.WithLabelValues(system, outcome).Inc()
	m.EHRSubmissionLatency.WithLabelValues(system).Observe(latencySeconds)
}

// RecordTokenRefresh records an OAuth2 token acquisition.
func (m *Metrics) RecordTokenRefresh(system string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.TokenRefreshes.WithLabelValues(system, outcome).Inc()
}

// RecordMLLPSend records an MLLP send attempt.
func (m *Metrics) RecordMLLPSend(messageType string, err error) {
	m.MLLPSends.WithLabelValues(messageType).Inc()
	if err != nil {
		m.MLLPSendErrors.Inc()
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

// RecordTranscription records a batch transcription request.
func (m *Metrics) RecordTranscription(provider string, err error, latencySeconds float64, utterances int) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.TranscriptionRequests.WithLabelValues(provider, outcome).Inc()
	m.TranscriptionLatency.WithLabelValues(provider).Observe(latencySeconds)
	m.UtterancesExtracted.Add(float64(utterances))
}
