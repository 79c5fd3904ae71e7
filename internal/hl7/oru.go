package hl7

import (
	"fmt"
	"strings"

	"clinical-ehr-bridge/internal/encoding"
)

// R01Request carries the inputs for one ORU^R01 build. Zero-valued optional
// fields fall back to the documented defaults.
type R01Request struct {
	Transcript  string
	PatientID   string
	OrderID     string
	ProviderNPI string

	// LoincCode / LoincDisplay identify the observation in OBR-4 and OBX-3;
	// default to the progress note pair.
	LoincCode    string
	LoincDisplay string

	// MSH-3..MSH-6 routing; defaulted when empty.
	SendingApp        string
	SendingFacility   string
	ReceivingApp      string
	ReceivingFacility string
}

// BuildR01 builds an ORU^R01 observation result message with exactly four
// segments: MSH, PID, OBR, OBX.
func (b *Builder) BuildR01(req R01Request) (string, error) {
	loincCode := orDefault(req.LoincCode, "11506-3")
	loincDisplay := orDefault(req.LoincDisplay, "Progress note")

	ts := encoding.HL7Timestamp(b.now())
	segments := []string{
		msh(ts, "ORU^R01", newControlID(),
			orDefault(req.SendingApp, "TRANSCRIPTION"),
			orDefault(req.SendingFacility, "EHR"),
			orDefault(req.ReceivingApp, "EHR_SYSTEM"),
			orDefault(req.ReceivingFacility, "FACILITY")),
		pid(req.PatientID),
		obr(req.OrderID, ts, req.ProviderNPI, loincCode, loincDisplay),
		obx(req.Transcript, loincCode, loincDisplay),
	}
	return strings.Join(segments, SegmentTerminator), nil
}

// obr builds the observation request segment; OBR-7 carries the shared
// timestamp and OBR-10 the collector (provider) identifier.
func obr(orderID, ts, providerNPI, loincCode, loincDisplay string) string {
	return fmt.Sprintf("OBR|1|%s||%s^%s^LN|||%s|||%s^Provider^Name",
		encoding.EscapeHL7(orderID), loincCode, loincDisplay, ts, encoding.EscapeHL7(providerNPI))
}
