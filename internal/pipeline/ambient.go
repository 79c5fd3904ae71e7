// Package pipeline wires the encoders, EHR clients and event publisher into
// the clinical documentation use cases.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinical-ehr-bridge/internal/ehr"
	"clinical-ehr-bridge/internal/events"
	"clinical-ehr-bridge/internal/fhir"
	"clinical-ehr-bridge/internal/models"
	"clinical-ehr-bridge/internal/observability/logging"
)

// AmbientPipeline implements ambient clinical documentation: utterances from
// a live encounter are accumulated and, when the encounter ends, encoded as
// a FHIR DocumentReference and posted to the EHR.
type AmbientPipeline struct {
	ehrClient ehr.Client
	builder   *fhir.Builder
	publisher *events.Publisher

	mu         sync.Mutex
	utterances []models.Utterance
}

// NewAmbientPipeline constructs an AmbientPipeline. The publisher may be nil
// when event emission is not wanted.
func NewAmbientPipeline(ehrClient ehr.Client, publisher *events.Publisher) *AmbientPipeline {
	return &AmbientPipeline{
		ehrClient: ehrClient,
		builder:   fhir.NewBuilder(),
		publisher: publisher,
	}
}

// AddUtterance accumulates one utterance from streaming transcription.
func (p *AmbientPipeline) AddUtterance(u models.Utterance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.utterances = append(p.utterances, u)
}

// Utterances returns a copy of the accumulated utterances.
func (p *AmbientPipeline) Utterances() []models.Utterance {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Utterance, len(p.utterances))
	copy(out, p.utterances)
	return out
}

// FinalizeRequest identifies the encounter being documented.
type FinalizeRequest struct {
	PatientID            string
	EncounterID          string
	DocType              fhir.DocumentType
	AuthorPractitionerID string
}

// FinalizeResult carries the built resource and the EHR's response.
type FinalizeResult struct {
	Document   *fhir.DocumentReference
	StatusCode int
	Location   string
}

// FinalizeAndSubmit builds a validated DocumentReference from the
// accumulated utterances and posts it to the EHR.
func (p *AmbientPipeline) FinalizeAndSubmit(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	logger := logging.WithDocument(req.PatientID, req.EncounterID, string(req.DocType))

	doc, err := p.builder.Build(fhir.BuildRequest{
		Utterances:           p.Utterances(),
		PatientID:            req.PatientID,
		EncounterID:          req.EncounterID,
		DocType:              req.DocType,
		AuthorPractitionerID: req.AuthorPractitionerID,
	})
	if err != nil {
		logger.Error().Err(err).Msg("DocumentReference build failed")
		return nil, err
	}

	p.publishCreated(ctx, req, "fhir")

	result, err := p.ehrClient.SubmitDocumentReference(ctx, doc)
	if err != nil {
		logger.Error().Err(err).Msg("EHR submission failed")
		return nil, err
	}
	if !result.Created() {
		logger.Error().Int("statusCode", result.StatusCode).Msg("EHR rejected DocumentReference")
		return nil, fmt.Errorf("pipeline: EHR rejected DocumentReference with status %d", result.StatusCode)
	}

	p.publishSubmitted(ctx, req, result.StatusCode)

	logger.Info().
		Int("statusCode", result.StatusCode).
		Str("location", result.Location).
		Msg("DocumentReference submitted")

	return &FinalizeResult{
		Document:   doc,
		StatusCode: result.StatusCode,
		Location:   result.Location,
	}, nil
}

func (p *AmbientPipeline) publishCreated(ctx context.Context, req FinalizeRequest, format string) {
	if p.publisher == nil {
		return
	}
	// Event delivery is best effort; the document flow does not depend on it.
	_ = p.publisher.PublishCreated(ctx, req.EncounterID, events.DocumentCreated{
		EventType:   "document.created",
		PatientID:   req.PatientID,
		EncounterID: req.EncounterID,
		DocType:     string(req.DocType),
		Format:      format,
		Timestamp:   time.Now().UnixMilli(),
	})
}

func (p *AmbientPipeline) publishSubmitted(ctx context.Context, req FinalizeRequest, statusCode int) {
	if p.publisher == nil {
		return
	}
	_ = p.publisher.PublishSubmitted(ctx, req.EncounterID, events.DocumentSubmitted{
		EventType:  "document.submitted",
		PatientID:  req.PatientID,
		DocType:    string(req.DocType),
		System:     "fhir",
		StatusCode: statusCode,
		Timestamp:  time.Now().UnixMilli(),
	})
}
