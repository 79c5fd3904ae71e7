package pipeline

import (
	"context"

	"clinical-ehr-bridge/internal/fhir"
	"clinical-ehr-bridge/internal/hl7"
	"clinical-ehr-bridge/internal/models"
	"clinical-ehr-bridge/internal/stt"
)

// DictationPipeline implements physician dictation: a completed recording is
// transcribed in batch and the transcript is encoded as a FHIR
// DocumentReference or an HL7v2 MDM^T02.
type DictationPipeline struct {
	transcriber stt.Transcriber
	fhirBuilder *fhir.Builder
	hl7Builder  *hl7.Builder
}

// NewDictationPipeline constructs a DictationPipeline.
func NewDictationPipeline(transcriber stt.Transcriber) *DictationPipeline {
	return &DictationPipeline{
		transcriber: transcriber,
		fhirBuilder: fhir.NewBuilder(),
		hl7Builder:  hl7.NewBuilder(),
	}
}

// Transcribe runs batch transcription over the dictated audio.
func (p *DictationPipeline) Transcribe(ctx context.Context, audio []byte, keyterms []string) (*models.TranscriptionResult, error) {
	return p.transcriber.Transcribe(ctx, audio, stt.Options{
		Diarize:  true,
		Keyterms: keyterms,
	})
}

// ToFHIR encodes a transcription result as a validated DocumentReference.
func (p *DictationPipeline) ToFHIR(result *models.TranscriptionResult, patientID, encounterID string, docType fhir.DocumentType) (*fhir.DocumentReference, error) {
	return p.fhirBuilder.Build(fhir.BuildRequest{
		Utterances:     result.Utterances,
		FullTranscript: result.FullTranscript,
		PatientID:      patientID,
		EncounterID:    encounterID,
		DocType:        docType,
	})
}

// ToMDM encodes a transcription result as an HL7v2 MDM^T02 message.
func (p *DictationPipeline) ToMDM(result *models.TranscriptionResult, patientID, visitID, providerNPI string) (string, error) {
	return p.hl7Builder.BuildT02(hl7.T02Request{
		Transcript:  result.FullTranscript,
		PatientID:   patientID,
		VisitID:     visitID,
		ProviderNPI: providerNPI,
	})
}

// ToORU encodes a transcription result as an HL7v2 ORU^R01 message.
func (p *DictationPipeline) ToORU(result *models.TranscriptionResult, patientID, orderID, providerNPI string) (string, error) {
	return p.hl7Builder.BuildR01(hl7.R01Request{
		Transcript:  result.FullTranscript,
		PatientID:   patientID,
		OrderID:     orderID,
		ProviderNPI: providerNPI,
	})
}
