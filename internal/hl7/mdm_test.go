package hl7

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"clinical-ehr-bridge/internal/encoding"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
}

// segment finds a segment by name in a serialized message.
func segment(t *testing.T, msg, name string) []string {
	t.Helper()
	for _, seg := range strings.Split(msg, SegmentTerminator) {
		fields := strings.Split(seg, FieldSep)
		if fields[0] == name {
			return fields
		}
	}
	t.Fatalf("segment %s not found in message:\n%s", name, msg)
	return nil
}

// field returns field n of a segment using HL7 numbering: for MSH the field
// separator itself is MSH-1, so MSH-n lives at index n-1; for all other
// segments field n is at index n.
func field(fields []string, n int) string {
	idx := n
	if fields[0] == "MSH" {
		idx = n - 1
	}
	if idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

func buildTestT02(t *testing.T) string {
	t.Helper()
	msg, err := NewBuilderWithClock(fixedClock).BuildT02(T02Request{
		Transcript:  "Patient is a 58-year-old male with hypertension.",
		PatientID:   "MRN-001",
		VisitID:     "VISIT-001",
		ProviderNPI: "1234567890",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return msg
}

func TestBuildT02_SegmentOrder(t *testing.T) {
	msg := buildTestT02(t)

	segments := strings.Split(msg, SegmentTerminator)
	want := []string{"MSH", "EVN", "PID", "PV1", "TXA", "OBX"}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(segments))
	}
	for i, name := range want {
		if !strings.HasPrefix(segments[i], name+FieldSep) && !strings.HasPrefix(segments[i], name) {
			t.Errorf("segment %d: expected %s, got %q", i, name, segments[i])
		}
	}
}

func TestBuildT02_MSHFields(t *testing.T) {
	msh := segment(t, buildTestT02(t), "MSH")

	if got := field(msh, 2); got != `^~\&` {
		t.Errorf("MSH-2 encoding characters: expected ^~\\&, got %q", got)
	}
	if got := field(msh, 7); got != "20250314092653" {
		t.Errorf("MSH-7 timestamp: expected 20250314092653, got %q", got)
	}
	if got := field(msh, 9); got != "MDM^T02" {
		t.Errorf("MSH-9 message type: expected MDM^T02, got %q", got)
	}
	if got := field(msh, 10); got == "" {
		t.Error("MSH-10 message control id must not be empty")
	}
	if got := field(msh, 11); got != "P" {
		t.Errorf("MSH-11 processing id: expected P, got %q", got)
	}
	if got := field(msh, 12); got != "2.5.1" {
		t.Errorf("MSH-12 version: expected 2.5.1, got %q", got)
	}
}

func TestBuildT02_ControlIDUnique(t *testing.T) {
	b := NewBuilder()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		msg, err := b.BuildT02(T02Request{Transcript: "x", PatientID: "p", VisitID: "v", ProviderNPI: "n"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		id := field(segment(t, msg, "MSH"), 10)
		if seen[id] {
			t.Fatalf("duplicate message control id %q", id)
		}
		seen[id] = true
	}
}

func TestBuildT02_SharedTimestamp(t *testing.T) {
	msg := buildTestT02(t)

	ts := field(segment(t, msg, "MSH"), 7)
	if !regexp.MustCompile(`^\d{14}$`).MatchString(ts) {
		t.Fatalf("timestamp %q is not 14 digits", ts)
	}
	if got := field(segment(t, msg, "EVN"), 2); got != ts {
		t.Errorf("EVN-2 timestamp %q differs from MSH-7 %q", got, ts)
	}
	if got := field(segment(t, msg, "TXA"), 4); got != ts {
		t.Errorf("TXA-4 timestamp %q differs from MSH-7 %q", got, ts)
	}
}

func TestBuildT02_PIDAndPV1(t *testing.T) {
	msg := buildTestT02(t)

	pid := segment(t, msg, "PID")
	if got := field(pid, 3); !strings.HasPrefix(got, "MRN-001^^^MRN") {
		t.Errorf("PID-3: expected identifier MRN-001^^^MRN, got %q", got)
	}

	pv1 := segment(t, msg, "PV1")
	if got := field(pv1, 19); got != "VISIT-001" {
		t.Errorf("PV1-19 visit: expected VISIT-001, got %q", got)
	}
	if got := field(pv1, 7); !strings.HasPrefix(got, "1234567890^") {
		t.Errorf("PV1-7 attending: expected NPI component, got %q", got)
	}
}

func TestBuildT02_TXAStatusDefaults(t *testing.T) {
	txa := segment(t, buildTestT02(t), "TXA")

	if got := field(txa, 12); got != "AU" {
		t.Errorf("TXA-12 completion status: expected AU, got %q", got)
	}
	if got := field(txa, 14); got != "AV" {
		t.Errorf("TXA-14 availability status: expected AV, got %q", got)
	}
}

func TestBuildT02_TXAStatusOverrides(t *testing.T) {
	msg, err := NewBuilder().BuildT02(T02Request{
		Transcript:         "x",
		PatientID:          "p",
		VisitID:            "v",
		ProviderNPI:        "n",
		CompletionStatus:   CompletionDictated,
		AvailabilityStatus: AvailabilityUnavailable,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txa := segment(t, msg, "TXA")
	if got := field(txa, 12); got != "DI" {
		t.Errorf("TXA-12: expected DI, got %q", got)
	}
	if got := field(txa, 14); got != "UN" {
		t.Errorf("TXA-14: expected UN, got %q", got)
	}
}

func TestBuildT02_InvalidStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		req  T02Request
	}{
		{
			"bad completion",
			T02Request{Transcript: "x", PatientID: "p", VisitID: "v", ProviderNPI: "n",
				CompletionStatus: CompletionStatus("XX")},
		},
		{
			"bad availability",
			T02Request{Transcript: "x", PatientID: "p", VisitID: "v", ProviderNPI: "n",
				AvailabilityStatus: AvailabilityStatus("ZZ")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder().BuildT02(tt.req)
			var codeErr *InvalidHL7CodeError
			if !errors.As(err, &codeErr) {
				t.Fatalf("expected *InvalidHL7CodeError, got %v", err)
			}
		})
	}
}

func TestBuildT02_OBXFields(t *testing.T) {
	obx := segment(t, buildTestT02(t), "OBX")

	if got := field(obx, 2); got != "TX" {
		t.Errorf("OBX-2 value type: expected TX, got %q", got)
	}
	if got := field(obx, 11); got != "F" {
		t.Errorf("OBX-11 result status: expected F, got %q", got)
	}
}

func TestBuildT02_TranscriptEscaping(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
	}{
		{"pipes", "BP 120|80, HR 72"},
		{"all delimiters", `vitals: 120|80 ^ ~stable\ & improving`},
		{"newlines flattened", "line one\nline two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewBuilder().BuildT02(T02Request{
				Transcript:  tt.transcript,
				PatientID:   "p",
				VisitID:     "v",
				ProviderNPI: "n",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// A conformant parser splits fields first, then un-escapes.
			obx5 := field(segment(t, msg, "OBX"), 5)
			want := strings.NewReplacer("\r", " ", "\n", " ").Replace(tt.transcript)
			if got := encoding.UnescapeHL7(obx5); got != want {
				t.Errorf("round trip: got %q, want %q", got, want)
			}
		})
	}
}

func TestBuildT02_DefaultRouting(t *testing.T) {
	msh := segment(t, buildTestT02(t), "MSH")

	if got := field(msh, 3); got != "TRANSCRIPTION" {
		t.Errorf("MSH-3: expected TRANSCRIPTION, got %q", got)
	}
	if got := field(msh, 5); got != "EHR_SYSTEM" {
		t.Errorf("MSH-5: expected EHR_SYSTEM, got %q", got)
	}
}
