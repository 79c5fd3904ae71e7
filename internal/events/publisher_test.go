package events

import (
	"context"
	"testing"
)

func TestNew_NilConfig(t *testing.T) {
	p := New(nil)
	if p == nil {
		t.Fatal("expected a publisher in log-only mode")
	}
	if p.enabled {
		t.Error("nil config must disable Kafka")
	}
}

func TestNew_DisabledConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"explicitly disabled", &Config{Enabled: false, Brokers: []string{"kafka:9092"}}},
		{"no brokers", &Config{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p.enabled {
				t.Error("publisher should be disabled")
			}
			if p.writerCreated != nil || p.writerSubmitted != nil {
				t.Error("disabled publisher must not create writers")
			}
		})
	}
}

func TestPublish_LogOnlyMode(t *testing.T) {
	p := New(&Config{
		TopicCreated:   "clinical.document.created",
		TopicSubmitted: "clinical.document.submitted",
		Principal:      "svc-test",
		Enabled:        false,
	})

	err := p.PublishCreated(context.Background(), "enc-1", DocumentCreated{
		EventType: "document.created",
		PatientID: "p-1",
		DocType:   "progress_note",
		Format:    "fhir",
	})
	if err != nil {
		t.Errorf("log-only publish should not fail: %v", err)
	}

	err = p.PublishSubmitted(context.Background(), "enc-1", DocumentSubmitted{
		EventType:  "document.submitted",
		PatientID:  "p-1",
		DocType:    "progress_note",
		System:     "epic",
		StatusCode: 201,
	})
	if err != nil {
		t.Errorf("log-only publish should not fail: %v", err)
	}
}

func TestClose_DisabledPublisher(t *testing.T) {
	if err := New(nil).Close(); err != nil {
		t.Errorf("closing a disabled publisher should not fail: %v", err)
	}
}
