// Package google provides a Google Cloud Speech-to-Text batch transcriber
// with speaker diarization.
package google

import (
	"context"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"clinical-ehr-bridge/internal/models"
	"clinical-ehr-bridge/internal/observability/metrics"
	"clinical-ehr-bridge/internal/stt"
)

// Adapter implements stt.Transcriber using Google Cloud Speech-to-Text.
type Adapter struct {
	client  *speech.Client
	metrics *metrics.Metrics
}

// New creates a new Google batch transcriber.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: c, metrics: metrics.DefaultMetrics}, nil
}

// Transcribe runs a synchronous recognition request over the recording and
// converts the response into a TranscriptionResult.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, opts stt.Options) (*models.TranscriptionResult, error) {
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            orDefaultInt32(opts.SampleRateHz, 16000),
		LanguageCode:               orDefault(opts.LanguageCode, "en-US"),
		EnableWordTimeOffsets:      true,
		EnableAutomaticPunctuation: true,
	}
	if opts.Diarize {
		cfg.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          orDefaultInt32(opts.MinSpeakers, 2),
			MaxSpeakerCount:          orDefaultInt32(opts.MaxSpeakers, 2),
		}
	}
	if len(opts.Keyterms) > 0 {
		cfg.SpeechContexts = []*speechpb.SpeechContext{{Phrases: opts.Keyterms}}
	}

	start := time.Now()
	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		a.metrics.RecordTranscription("google", err, time.Since(start).Seconds(), 0)
		return nil, err
	}

	result := fromResponse(resp, cfg.LanguageCode)
	a.metrics.RecordTranscription("google", nil, time.Since(start).Seconds(), len(result.Utterances))
	return result, nil
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// fromResponse converts a RecognizeResponse into a TranscriptionResult.
// When diarization ran, the last result's alternative carries the full
// word list with speaker tags; consecutive words with the same tag are
// grouped into one utterance.
func fromResponse(resp *speechpb.RecognizeResponse, language string) *models.TranscriptionResult {
	result := &models.TranscriptionResult{
		Model:            "google-speech-v1",
		DetectedLanguage: language,
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := r.Alternatives[0].Transcript; t != "" {
			parts = append(parts, strings.TrimSpace(t))
		}
	}
	result.FullTranscript = strings.Join(parts, " ")

	if len(resp.Results) == 0 {
		return result
	}
	last := resp.Results[len(resp.Results)-1]
	if len(last.Alternatives) == 0 {
		return result
	}
	result.Utterances = groupWords(last.Alternatives[0])
	return result
}

// groupWords folds the tagged word stream into speaker turns.
func groupWords(alt *speechpb.SpeechRecognitionAlternative) []models.Utterance {
	var utterances []models.Utterance
	var current *models.Utterance
	var words []string

	flush := func() {
		if current != nil {
			current.Transcript = strings.Join(words, " ")
			utterances = append(utterances, *current)
			current = nil
			words = nil
		}
	}

	for _, w := range alt.Words {
		if w.SpeakerTag == 0 {
			continue // untagged word stream, diarization did not run
		}
		// Google tags speakers starting at 1; utterances are 0-based.
		speaker := int(w.SpeakerTag) - 1
		if current == nil || current.Speaker != speaker {
			flush()
			current = &models.Utterance{
				Speaker:    speaker,
				Start:      seconds(w.StartTime),
				Confidence: float64(alt.Confidence),
			}
		}
		current.End = seconds(w.EndTime)
		words = append(words, w.Word)
	}
	flush()
	return utterances
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt32(v, def int32) int32 {
	if v == 0 {
		return def
	}
	return v
}
