// Package mock provides a deterministic transcriber for testing and local
// development without cloud credentials.
package mock

import (
	"context"
	"strings"

	"clinical-ehr-bridge/internal/models"
	"clinical-ehr-bridge/internal/stt"
)

// DefaultUtterances is the canned encounter returned by a zero-value
// Transcriber.
var DefaultUtterances = []models.Utterance{
	{Speaker: 0, Transcript: "What brings you in today?", Start: 0.0, End: 2.1, Confidence: 0.97},
	{Speaker: 1, Transcript: "I've had chest pain since yesterday evening.", Start: 2.4, End: 5.8, Confidence: 0.94},
	{Speaker: 0, Transcript: "Any shortness of breath or dizziness?", Start: 6.2, End: 8.9, Confidence: 0.96},
	{Speaker: 1, Transcript: "Some shortness of breath when climbing stairs.", Start: 9.3, End: 12.5, Confidence: 0.92},
}

// Transcriber implements stt.Transcriber with canned responses.
type Transcriber struct {
	// Utterances overrides DefaultUtterances when non-nil.
	Utterances []models.Utterance
	// Err is returned by Transcribe when non-nil.
	Err error
}

// New creates a mock transcriber returning the default encounter.
func New() *Transcriber {
	return &Transcriber{}
}

// Transcribe returns the canned result. Diarization off drops the
// utterances and keeps only the full transcript, matching provider
// behavior.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, opts stt.Options) (*models.TranscriptionResult, error) {
	if t.Err != nil {
		return nil, t.Err
	}

	utterances := t.Utterances
	if utterances == nil {
		utterances = DefaultUtterances
	}

	parts := make([]string, len(utterances))
	for i, u := range utterances {
		parts[i] = u.Transcript
	}

	result := &models.TranscriptionResult{
		FullTranscript:   strings.Join(parts, " "),
		RequestID:        "mock-request",
		Model:            "mock",
		DetectedLanguage: "en-US",
		KeytermsDetected: opts.Keyterms,
	}
	if opts.Diarize {
		result.Utterances = append([]models.Utterance(nil), utterances...)
	}
	return result, nil
}
