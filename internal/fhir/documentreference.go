// Package fhir builds and validates FHIR R4 DocumentReference resources from
// clinical transcripts.
//
// The builder produces R4-shaped resources ready for POSTing to Epic or
// Cerner as application/fhir+json. Every resource is run through Validate
// before it is returned, so a caller never receives an invalid resource.
package fhir

import (
	"fmt"
	"strings"
	"time"

	"clinical-ehr-bridge/internal/encoding"
	"clinical-ehr-bridge/internal/models"
)

// LOINCSystem is the coding system URI for all document type codes.
const LOINCSystem = "http://loinc.org"

// DocumentType is the closed set of clinical document types this service
// produces. Each maps 1:1 to a fixed LOINC code; adding a type means
// extending loincCoding, there is no dynamic registration.
type DocumentType string

const (
	ProgressNote     DocumentType = "progress_note"
	ConsultNote      DocumentType = "consult_note"
	DischargeSummary DocumentType = "discharge_summary"
	Ambient          DocumentType = "ambient"
)

// UnknownDocumentTypeError reports a docTypeCode outside the closed set.
type UnknownDocumentTypeError struct {
	Code string
}

func (e *UnknownDocumentTypeError) Error() string {
	return fmt.Sprintf("unknown document type code %q", e.Code)
}

// loincCoding returns the fixed LOINC coding for a document type.
func loincCoding(dt DocumentType) (Coding, error) {
	switch dt {
	case ProgressNote:
		return Coding{System: LOINCSystem, Code: "11506-3", Display: "Progress note"}, nil
	case ConsultNote:
		return Coding{System: LOINCSystem, Code: "11488-4", Display: "Consult note"}, nil
	case DischargeSummary:
		return Coding{System: LOINCSystem, Code: "18842-5", Display: "Discharge summary"}, nil
	case Ambient:
		return Coding{System: LOINCSystem, Code: "34109-9", Display: "Note"}, nil
	default:
		return Coding{}, &UnknownDocumentTypeError{Code: string(dt)}
	}
}

// Coding is a FHIR Coding element.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept is a FHIR CodeableConcept element.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Reference is a FHIR literal reference ("ResourceType/id").
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Attachment is a FHIR Attachment element carrying base64 content.
type Attachment struct {
	ContentType string `json:"contentType,omitempty"`
	Data        string `json:"data,omitempty"`
	Title       string `json:"title,omitempty"`
}

// Content is one DocumentReference.content entry.
type Content struct {
	Attachment Attachment `json:"attachment"`
}

// Context is the DocumentReference.context backbone element.
type Context struct {
	Encounter []Reference `json:"encounter,omitempty"`
}

// DocumentReference is a FHIR R4 DocumentReference resource.
type DocumentReference struct {
	ResourceType string           `json:"resourceType"`
	Status       string           `json:"status"`
	DocStatus    string           `json:"docStatus,omitempty"`
	Type         *CodeableConcept `json:"type,omitempty"`
	Subject      *Reference       `json:"subject,omitempty"`
	Author       []Reference      `json:"author,omitempty"`
	Date         string           `json:"date,omitempty"`
	Content      []Content        `json:"content,omitempty"`
	Context      *Context         `json:"context,omitempty"`
}

// BuildRequest carries the inputs for one DocumentReference build.
type BuildRequest struct {
	Utterances []models.Utterance
	// FullTranscript is used when Utterances is empty (diarization not run).
	FullTranscript       string
	PatientID            string
	EncounterID          string
	DocType              DocumentType
	AuthorPractitionerID string // optional; author omitted when empty
	Title                string // defaults to "Clinical Transcription"
}

// Builder assembles validated DocumentReference resources.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder using the system clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock returns a Builder with a fixed clock source.
func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build assembles a DocumentReference from a transcript and validates it
// before returning. The document timestamp is captured once at build start.
func (b *Builder) Build(req BuildRequest) (*DocumentReference, error) {
	coding, err := loincCoding(req.DocType)
	if err != nil {
		return nil, err
	}

	subjectRef, err := encoding.Reference("Patient", req.PatientID)
	if err != nil {
		return nil, err
	}
	encounterRef, err := encoding.Reference("Encounter", req.EncounterID)
	if err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = "Clinical Transcription"
	}

	transcript := RenderTranscript(req.Utterances, req.FullTranscript)
	doc := &DocumentReference{
		ResourceType: "DocumentReference",
		Status:       "current",
		DocStatus:    "final",
		Type:         &CodeableConcept{Coding: []Coding{coding}},
		Subject:      &Reference{Reference: subjectRef},
		Date:         encoding.FHIRInstant(b.now()),
		Content: []Content{{
			Attachment: Attachment{
				ContentType: "text/plain",
				Data:        encoding.EncodeBase64(transcript),
				Title:       title,
			},
		}},
		Context: &Context{Encounter: []Reference{{Reference: encounterRef}}},
	}

	if req.AuthorPractitionerID != "" {
		authorRef, err := encoding.Reference("Practitioner", req.AuthorPractitionerID)
		if err != nil {
			return nil, err
		}
		doc.Author = []Reference{{Reference: authorRef}}
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RenderTranscript renders diarized utterances as one line per speaker turn:
//
//	[Speaker 0 | 0.0s-4.2s] Patient reports chest pain.
//
// When utterances is empty the fallback text is returned verbatim.
func RenderTranscript(utterances []models.Utterance, fallback string) string {
	if len(utterances) == 0 {
		return fallback
	}
	lines := make([]string, len(utterances))
	for i, u := range utterances {
		lines[i] = fmt.Sprintf("[Speaker %d | %.1fs-%.1fs] %s", u.Speaker, u.Start, u.End, u.Transcript)
	}
	return strings.Join(lines, "\n")
}

// Decode returns the plain-text transcript from a DocumentReference by
// base64-decoding content[0].attachment.data. It is the left inverse of the
// content encoding in Build.
func Decode(doc *DocumentReference) (string, error) {
	if doc == nil || len(doc.Content) == 0 {
		return "", fmt.Errorf("document has no content to decode")
	}
	text, err := encoding.DecodeBase64(doc.Content[0].Attachment.Data)
	if err != nil {
		return "", fmt.Errorf("cannot decode document content: %w", err)
	}
	return text, nil
}
