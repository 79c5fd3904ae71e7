// Package events provides document lifecycle event publishing.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"clinical-ehr-bridge/internal/observability/metrics"
)

// DocumentCreated is emitted after a DocumentReference or HL7 message is
// built and validated.
type DocumentCreated struct {
	EventType   string `json:"eventType"`
	PatientID   string `json:"patientId"`
	EncounterID string `json:"encounterId,omitempty"`
	DocType     string `json:"docType"`
	Format      string `json:"format"` // fhir, mdm, oru
	Timestamp   int64  `json:"timestamp"`
}

// DocumentSubmitted is emitted after a document is accepted by an EHR.
type DocumentSubmitted struct {
	EventType  string `json:"eventType"`
	PatientID  string `json:"patientId"`
	DocType    string `json:"docType"`
	System     string `json:"system"` // epic, cerner, mllp
	StatusCode int    `json:"statusCode,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// Publisher publishes document lifecycle events to separate Kafka topics.
type Publisher struct {
	writerCreated   *kafka.Writer
	writerSubmitted *kafka.Writer
	principal       string
	topicCreated    string
	topicSubmitted  string
	enabled         bool
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicCreated   string
	TopicSubmitted string
	Principal      string
	Enabled        bool
}

// New creates a new Kafka event publisher with separate topics for created
// and submitted documents. With Kafka disabled the publisher runs in
// log-only mode.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicCreated:   cfg.TopicCreated,
			topicSubmitted: cfg.TopicSubmitted,
			enabled:        false,
			metrics:        m,
		}
	}

	// Longer dial timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerCreated := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicCreated,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
	writerSubmitted := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicSubmitted,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCreated", cfg.TopicCreated).
		Str("topicSubmitted", cfg.TopicSubmitted).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerCreated:   writerCreated,
		writerSubmitted: writerSubmitted,
		principal:       cfg.Principal,
		topicCreated:    cfg.TopicCreated,
		topicSubmitted:  cfg.TopicSubmitted,
		enabled:         true,
		metrics:         m,
	}
}

// PublishCreated publishes a document.created event.
func (p *Publisher) PublishCreated(ctx context.Context, key string, event DocumentCreated) error {
	return p.publish(ctx, p.writerCreated, p.topicCreated, "created", key, event)
}

// PublishSubmitted publishes a document.submitted event.
func (p *Publisher) PublishSubmitted(ctx context.Context, key string, event DocumentSubmitted) error {
	return p.publish(ctx, p.writerSubmitted, p.topicSubmitted, "submitted", key, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerCreated != nil {
		if e := p.writerCreated.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing created writer")
			err = e
		}
	}
	if p.writerSubmitted != nil {
		if e := p.writerSubmitted.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing submitted writer")
			err = e
		}
	}
	return err
}
