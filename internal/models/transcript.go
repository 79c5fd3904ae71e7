// Package models defines the data structures for clinical transcription results.
package models

// Utterance is a single speaker turn from diarized transcription.
type Utterance struct {
	Speaker    int     `json:"speaker"`    // 0-based speaker index
	Transcript string  `json:"transcript"` // transcribed text for this turn
	Start      float64 `json:"start"`      // start time in seconds
	End        float64 `json:"end"`        // end time in seconds
	Confidence float64 `json:"confidence"` // confidence score 0-1, 0.0 when unknown
}

// TranscriptionResult is the structured output of one transcription request.
// Utterances are in chronological order and empty when diarization was not
// requested; FullTranscript is always present. The provenance fields are
// opaque to the encoders and carried only for auditing.
type TranscriptionResult struct {
	Utterances       []Utterance `json:"utterances"`
	FullTranscript   string      `json:"fullTranscript"`
	RequestID        string      `json:"requestId"`
	Model            string      `json:"model"`
	DetectedLanguage string      `json:"detectedLanguage"`
	KeytermsDetected []string    `json:"keytermsDetected"`
}
