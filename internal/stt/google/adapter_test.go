package google

import (
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"
)

func word(text string, tag int32, start, end float64) *speechpb.WordInfo {
	return &speechpb.WordInfo{
		Word:       text,
		SpeakerTag: tag,
		StartTime:  durationpb.New(time.Duration(start * float64(time.Second))),
		EndTime:    durationpb.New(time.Duration(end * float64(time.Second))),
	}
}

func TestGroupWords_SpeakerTurns(t *testing.T) {
	alt := &speechpb.SpeechRecognitionAlternative{
		Confidence: 0.95,
		Words: []*speechpb.WordInfo{
			word("what", 1, 0.0, 0.3),
			word("hurts", 1, 0.3, 0.7),
			word("my", 2, 1.0, 1.2),
			word("chest", 2, 1.2, 1.6),
			word("okay", 1, 2.0, 2.4),
		},
	}

	utterances := groupWords(alt)

	if len(utterances) != 3 {
		t.Fatalf("expected 3 speaker turns, got %d: %+v", len(utterances), utterances)
	}
	if utterances[0].Speaker != 0 || utterances[0].Transcript != "what hurts" {
		t.Errorf("turn 0: %+v", utterances[0])
	}
	if utterances[1].Speaker != 1 || utterances[1].Transcript != "my chest" {
		t.Errorf("turn 1: %+v", utterances[1])
	}
	if utterances[2].Speaker != 0 || utterances[2].Transcript != "okay" {
		t.Errorf("turn 2: %+v", utterances[2])
	}
	if utterances[0].Start != 0.0 || utterances[0].End != 0.7 {
		t.Errorf("turn 0 span: %+v", utterances[0])
	}
	if utterances[1].Confidence != float64(alt.Confidence) {
		t.Errorf("confidence not carried: %+v", utterances[1])
	}
}

func TestGroupWords_UntaggedWords(t *testing.T) {
	alt := &speechpb.SpeechRecognitionAlternative{
		Words: []*speechpb.WordInfo{
			word("plain", 0, 0.0, 0.4),
			word("dictation", 0, 0.4, 1.0),
		},
	}

	if got := groupWords(alt); len(got) != 0 {
		t.Errorf("untagged words must not produce utterances, got %+v", got)
	}
}

func TestFromResponse(t *testing.T) {
	resp := &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{Transcript: "What hurts? "},
			}},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{
					Transcript: "My chest.",
					Words: []*speechpb.WordInfo{
						word("what", 1, 0.0, 0.5),
						word("hurts", 1, 0.5, 0.9),
						word("my", 2, 1.2, 1.4),
						word("chest", 2, 1.4, 1.8),
					},
				},
			}},
		},
	}

	result := fromResponse(resp, "en-US")

	if result.FullTranscript != "What hurts? My chest." {
		t.Errorf("full transcript %q", result.FullTranscript)
	}
	if len(result.Utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(result.Utterances))
	}
	if result.DetectedLanguage != "en-US" {
		t.Errorf("language %q", result.DetectedLanguage)
	}
	if result.Model != "google-speech-v1" {
		t.Errorf("model %q", result.Model)
	}
}

func TestFromResponse_Empty(t *testing.T) {
	result := fromResponse(&speechpb.RecognizeResponse{}, "en-US")

	if result.FullTranscript != "" || len(result.Utterances) != 0 {
		t.Errorf("empty response should yield an empty result: %+v", result)
	}
}
