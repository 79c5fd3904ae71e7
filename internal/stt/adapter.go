// Package stt defines the boundary to batch speech-to-text providers.
package stt

import (
	"context"

	"clinical-ehr-bridge/internal/models"
)

// Options control one batch transcription request.
type Options struct {
	// LanguageCode defaults to en-US.
	LanguageCode string
	// SampleRateHz defaults to 16000.
	SampleRateHz int32
	// Diarize enables speaker attribution; without it the result carries
	// only FullTranscript.
	Diarize bool
	// MinSpeakers / MaxSpeakers bound diarization; defaults 2/2 for a
	// clinician-patient encounter.
	MinSpeakers int32
	MaxSpeakers int32
	// Keyterms bias recognition towards clinical vocabulary.
	Keyterms []string
}

// Transcriber produces a diarized transcript from a completed recording.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts Options) (*models.TranscriptionResult, error)
}
