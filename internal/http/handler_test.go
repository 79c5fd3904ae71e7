package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinical-ehr-bridge/internal/fhir"
)

func newTestRouter() http.Handler {
	return NewRouter(NewHandler(nil))
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBuildFHIRDocument_Created(t *testing.T) {
	rec := postJSON(t, newTestRouter(), "/v1/documents/fhir", map[string]any{
		"utterances": []map[string]any{
			{"speaker": 0, "transcript": "What brings you in today?", "start": 0.0, "end": 2.1},
			{"speaker": 1, "transcript": "Chest pain since yesterday.", "start": 2.4, "end": 5.8},
		},
		"patientId":   "123",
		"encounterId": "456",
		"docType":     "progress_note",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/fhir+json" {
		t.Errorf("expected application/fhir+json, got %q", ct)
	}

	var doc fhir.DocumentReference
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.ResourceType != "DocumentReference" {
		t.Errorf("unexpected resourceType %q", doc.ResourceType)
	}
	if doc.Subject == nil || doc.Subject.Reference != "Patient/123" {
		t.Errorf("unexpected subject %+v", doc.Subject)
	}
	if err := fhir.Validate(&doc); err != nil {
		t.Errorf("returned resource failed validation: %v", err)
	}
}

func TestBuildFHIRDocument_UnknownDocType(t *testing.T) {
	rec := postJSON(t, newTestRouter(), "/v1/documents/fhir", map[string]any{
		"fullTranscript": "text",
		"patientId":      "123",
		"encounterId":    "456",
		"docType":        "operative_note",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "operative_note") {
		t.Errorf("error should name the rejected code: %s", rec.Body.String())
	}
}

func TestBuildFHIRDocument_MissingPatient(t *testing.T) {
	rec := postJSON(t, newTestRouter(), "/v1/documents/fhir", map[string]any{
		"fullTranscript": "text",
		"encounterId":    "456",
		"docType":        "progress_note",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBuildFHIRDocument_BadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/fhir", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBuildMDM_OK(t *testing.T) {
	rec := postJSON(t, newTestRouter(), "/v1/messages/mdm", map[string]any{
		"transcript":  "Patient seen and examined.",
		"patientId":   "MRN-1",
		"visitId":     "V-1",
		"providerNpi": "1234567890",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		MessageType string `json:"messageType"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MessageType != "MDM^T02" {
		t.Errorf("expected MDM^T02, got %q", resp.MessageType)
	}
	if !strings.HasPrefix(resp.Message, "MSH|^~\\&|") {
		t.Errorf("message does not start with MSH header: %q", resp.Message)
	}
	if got := len(strings.Split(resp.Message, "\r")); got != 6 {
		t.Errorf("expected 6 segments, got %d", got)
	}
}

func TestBuildMDM_InvalidCompletionStatus(t *testing.T) {
	rec := postJSON(t, newTestRouter(), "/v1/messages/mdm", map[string]any{
		"transcript":       "text",
		"patientId":        "MRN-1",
		"visitId":          "V-1",
		"providerNpi":      "n",
		"completionStatus": "XX",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "TXA-12") {
		t.Errorf("error should name the offending field: %s", rec.Body.String())
	}
}

func TestBuildORU_OK(t *testing.T) {
	rec := postJSON(t, newTestRouter(), "/v1/messages/oru", map[string]any{
		"transcript":   "Glucose 98 mg/dL.",
		"patientId":    "MRN-1",
		"orderId":      "ORD-1",
		"providerNpi":  "1234567890",
		"loincCode":    "18842-5",
		"loincDisplay": "Discharge summary",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		MessageType string `json:"messageType"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MessageType != "ORU^R01" {
		t.Errorf("expected ORU^R01, got %q", resp.MessageType)
	}
	if !strings.Contains(resp.Message, "18842-5^Discharge summary^LN") {
		t.Errorf("expected overridden LOINC triple in message: %q", resp.Message)
	}
	if got := len(strings.Split(resp.Message, "\r")); got != 4 {
		t.Errorf("expected 4 segments, got %d", got)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
