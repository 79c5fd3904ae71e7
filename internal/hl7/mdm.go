package hl7

import (
	"fmt"
	"strings"

	"clinical-ehr-bridge/internal/encoding"
)

// CompletionStatus is a TXA-12 document completion status (HL7 table 0271).
type CompletionStatus string

const (
	CompletionAuthenticated        CompletionStatus = "AU"
	CompletionDictated             CompletionStatus = "DI"
	CompletionDocumented           CompletionStatus = "DO"
	CompletionIncomplete           CompletionStatus = "IN"
	CompletionInProgress           CompletionStatus = "IP"
	CompletionLegallyAuthenticated CompletionStatus = "LA"
	CompletionPreAuthenticated     CompletionStatus = "PA"
)

var validCompletionStatuses = []string{"AU", "DI", "DO", "IN", "IP", "LA", "PA"}

// AvailabilityStatus is a TXA-14 document availability status (HL7 table 0273).
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "AV"
	AvailabilityCancelled   AvailabilityStatus = "CA"
	AvailabilityObsolete    AvailabilityStatus = "OB"
	AvailabilityUnavailable AvailabilityStatus = "UN"
)

var validAvailabilityStatuses = []string{"AV", "CA", "OB", "UN"}

// T02Request carries the inputs for one MDM^T02 build. Zero-valued optional
// fields fall back to the documented defaults.
type T02Request struct {
	Transcript  string
	PatientID   string
	VisitID     string
	ProviderNPI string

	// DocumentID is generated when empty.
	DocumentID string

	// MSH-3..MSH-6 routing; defaulted when empty.
	SendingApp        string
	SendingFacility   string
	ReceivingApp      string
	ReceivingFacility string

	// CompletionStatus defaults to AU (authenticated); AvailabilityStatus
	// defaults to AV (available). Any other value must come from the HL7
	// table for its field.
	CompletionStatus   CompletionStatus
	AvailabilityStatus AvailabilityStatus
}

// BuildT02 builds an MDM^T02 medical document management message with
// exactly six segments: MSH, EVN, PID, PV1, TXA, OBX.
func (b *Builder) BuildT02(req T02Request) (string, error) {
	completion := req.CompletionStatus
	if completion == "" {
		completion = CompletionAuthenticated
	}
	if !contains(validCompletionStatuses, string(completion)) {
		return "", &InvalidHL7CodeError{
			Field: "TXA-12 completion status",
			Code:  string(completion),
			Valid: validCompletionStatuses,
		}
	}

	availability := req.AvailabilityStatus
	if availability == "" {
		availability = AvailabilityAvailable
	}
	if !contains(validAvailabilityStatuses, string(availability)) {
		return "", &InvalidHL7CodeError{
			Field: "TXA-14 availability status",
			Code:  string(availability),
			Valid: validAvailabilityStatuses,
		}
	}

	ts := encoding.HL7Timestamp(b.now())
	docID := req.DocumentID
	if docID == "" {
		docID = newDocumentID()
	}

	segments := []string{
		msh(ts, "MDM^T02", newControlID(),
			orDefault(req.SendingApp, "TRANSCRIPTION"),
			orDefault(req.SendingFacility, "EHR"),
			orDefault(req.ReceivingApp, "EHR_SYSTEM"),
			orDefault(req.ReceivingFacility, "FACILITY")),
		evn(ts),
		pid(req.PatientID),
		pv1(req.VisitID, req.ProviderNPI),
		txa(ts, docID, req.ProviderNPI, completion, availability),
		obx(req.Transcript, "18842-5", "Discharge summary"),
	}
	return strings.Join(segments, SegmentTerminator), nil
}

// evn builds the event type segment; EVN-2 carries the shared timestamp.
func evn(ts string) string {
	return "EVN||" + ts
}

// pv1 builds the patient visit segment with placeholder location fields.
// The attending provider goes in PV1-7 and the visit number in PV1-19.
func pv1(visitID, providerNPI string) string {
	return fmt.Sprintf("PV1|1|I|^^^WARD^^BED||||%s^Provider^Name||||||||||||%s",
		encoding.EscapeHL7(providerNPI), encoding.EscapeHL7(visitID))
}

// txa builds the transcription document header segment. TXA-4, TXA-6 and
// TXA-7 carry the same timestamp captured at build start.
func txa(ts, docID, providerNPI string, completion CompletionStatus, availability AvailabilityStatus) string {
	return fmt.Sprintf("TXA|1|PN^Progress Note|TX|%s|%s^Provider^Name|%s|%s||%s||%s|%s||%s",
		ts, encoding.EscapeHL7(providerNPI), ts, ts, docID, docID, completion, availability)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
