// Package hl7 builds HL7v2 pipe-delimited messages from clinical
// transcripts: MDM^T02 for document management and ORU^R01 for text
// observation results.
//
// Messages target HL7 v2.5.1 with the standard delimiter set. Free-text
// field content is escaped before insertion so a conformant parser
// reproduces the original text exactly after un-escaping.
package hl7

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinical-ehr-bridge/internal/encoding"
)

const (
	// FieldSep separates fields within a segment (MSH-1).
	FieldSep = "|"
	// EncodingChars is the MSH-2 delimiter set: component, repetition,
	// escape, subcomponent.
	EncodingChars = `^~\&`
	// Version is the HL7 version emitted in MSH-12.
	Version = "2.5.1"
	// ProcessingID is the MSH-11 processing id; always production.
	ProcessingID = "P"
	// SegmentTerminator separates segments in a serialized message.
	SegmentTerminator = "\r"
)

// InvalidHL7CodeError reports a coded field value outside its HL7 table.
type InvalidHL7CodeError struct {
	Field string
	Code  string
	Valid []string
}

func (e *InvalidHL7CodeError) Error() string {
	return fmt.Sprintf("%s code %q is not in the valid set %v", e.Field, e.Code, e.Valid)
}

// Builder assembles HL7v2 messages. The message timestamp is captured once
// per build and reused in every segment that embeds it.
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

// newControlID generates a unique MSH-10 message control id.
func newControlID() string {
	return "MSG" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:18]
}

// newDocumentID generates a unique TXA document id.
func newDocumentID() string {
	return "DOC" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:18]
}

// msh builds the message header segment. MSH-1 is the field separator
// itself, so the literal after "MSH" starts with the encoding characters.
func msh(ts, messageType, controlID, sendingApp, sendingFacility, receivingApp, receivingFacility string) string {
	return strings.Join([]string{
		"MSH" + FieldSep + EncodingChars,
		sendingApp,        // MSH-3
		sendingFacility,   // MSH-4
		receivingApp,      // MSH-5
		receivingFacility, // MSH-6
		ts,                // MSH-7 message datetime
		"",                // MSH-8 security
		messageType,       // MSH-9
		controlID,         // MSH-10
		ProcessingID,      // MSH-11
		Version,           // MSH-12
	}, FieldSep)
}

// pid builds the patient identification segment. Name fields are
// placeholders; the builders do not require a patient name.
func pid(patientID string) string {
	return fmt.Sprintf("PID|1||%s^^^MRN||LastName^FirstName|||U", encoding.EscapeHL7(patientID))
}

// obx builds a text observation segment: OBX-2 is always TX and OBX-11 is
// always F (final). Segment terminators cannot appear inside a field, so CR
// and LF in the transcript are flattened to spaces before escaping.
func obx(transcript, loincCode, loincDisplay string) string {
	return fmt.Sprintf("OBX|1|TX|%s^%s^LN||%s||||||F", loincCode, loincDisplay, observationText(transcript))
}

func observationText(transcript string) string {
	flat := strings.NewReplacer("\r", " ", "\n", " ").Replace(transcript)
	return encoding.EscapeHL7(flat)
}
