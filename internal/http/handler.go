package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"clinical-ehr-bridge/internal/encoding"
	"clinical-ehr-bridge/internal/events"
	"clinical-ehr-bridge/internal/fhir"
	"clinical-ehr-bridge/internal/hl7"
	"clinical-ehr-bridge/internal/models"
	"clinical-ehr-bridge/internal/observability/logging"
	"clinical-ehr-bridge/internal/observability/metrics"
)

// Handler serves the document encoding API.
type Handler struct {
	fhirBuilder *fhir.Builder
	hl7Builder  *hl7.Builder
	publisher   *events.Publisher
	metrics     *metrics.Metrics
}

// NewHandler constructs a Handler. The publisher may be nil.
func NewHandler(publisher *events.Publisher) *Handler {
	return &Handler{
		fhirBuilder: fhir.NewBuilder(),
		hl7Builder:  hl7.NewBuilder(),
		publisher:   publisher,
		metrics:     metrics.DefaultMetrics,
	}
}

// buildDocumentRequest is the POST /v1/documents/fhir body.
type buildDocumentRequest struct {
	Utterances           []models.Utterance `json:"utterances"`
	FullTranscript       string             `json:"fullTranscript"`
	PatientID            string             `json:"patientId"`
	EncounterID          string             `json:"encounterId"`
	DocType              string             `json:"docType"`
	AuthorPractitionerID string             `json:"authorPractitionerId"`
	Title                string             `json:"title"`
}

// buildMessageRequest is the POST /v1/messages/{mdm,oru} body.
type buildMessageRequest struct {
	Transcript  string `json:"transcript"`
	PatientID   string `json:"patientId"`
	VisitID     string `json:"visitId"`
	OrderID     string `json:"orderId"`
	ProviderNPI string `json:"providerNpi"`

	LoincCode    string `json:"loincCode"`
	LoincDisplay string `json:"loincDisplay"`

	SendingApp        string `json:"sendingApp"`
	SendingFacility   string `json:"sendingFacility"`
	ReceivingApp      string `json:"receivingApp"`
	ReceivingFacility string `json:"receivingFacility"`

	CompletionStatus   string `json:"completionStatus"`
	AvailabilityStatus string `json:"availabilityStatus"`
}

type messageResponse struct {
	MessageType string `json:"messageType"`
	Message     string `json:"message"`
}

type errorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

// BuildFHIRDocument handles POST /v1/documents/fhir: it builds and validates
// a DocumentReference and returns it as application/fhir+json. Validation
// failures return 422 with the complete violation list.
func (h *Handler) BuildFHIRDocument(w http.ResponseWriter, r *http.Request) {
	var req buildDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	logger := logging.WithDocument(req.PatientID, req.EncounterID, req.DocType)

	doc, err := h.fhirBuilder.Build(fhir.BuildRequest{
		Utterances:           req.Utterances,
		FullTranscript:       req.FullTranscript,
		PatientID:            req.PatientID,
		EncounterID:          req.EncounterID,
		DocType:              fhir.DocumentType(req.DocType),
		AuthorPractitionerID: req.AuthorPractitionerID,
		Title:                req.Title,
	})
	if err != nil {
		var unknownType *fhir.UnknownDocumentTypeError
		var encodingErr *encoding.EncodingError
		var validationErr *fhir.ValidationError
		switch {
		case errors.As(err, &unknownType):
			h.metrics.RecordDocumentBuildError("unknown_doc_type")
			writeError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.As(err, &encodingErr):
			h.metrics.RecordDocumentBuildError("bad_identifier")
			writeError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.As(err, &validationErr):
			h.metrics.RecordDocumentBuildError("validation")
			h.metrics.RecordValidationFailure(len(validationErr.Violations))
			writeError(w, http.StatusUnprocessableEntity, "FHIR R4 validation failed", validationErr.Violations)
		default:
			h.metrics.RecordDocumentBuildError("internal")
			writeError(w, http.StatusInternalServerError, err.Error(), nil)
		}
		logger.Error().Err(err).Msg("DocumentReference build rejected")
		return
	}

	h.metrics.RecordDocumentBuilt(req.DocType)
	h.publishCreated(r, req, "fhir")
	logger.Info().Msg("DocumentReference built")

	w.Header().Set("Content-Type", "application/fhir+json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

// BuildMDM handles POST /v1/messages/mdm.
func (h *Handler) BuildMDM(w http.ResponseWriter, r *http.Request) {
	var req buildMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	msg, err := h.hl7Builder.BuildT02(hl7.T02Request{
		Transcript:         req.Transcript,
		PatientID:          req.PatientID,
		VisitID:            req.VisitID,
		ProviderNPI:        req.ProviderNPI,
		SendingApp:         req.SendingApp,
		SendingFacility:    req.SendingFacility,
		ReceivingApp:       req.ReceivingApp,
		ReceivingFacility:  req.ReceivingFacility,
		CompletionStatus:   hl7.CompletionStatus(req.CompletionStatus),
		AvailabilityStatus: hl7.AvailabilityStatus(req.AvailabilityStatus),
	})
	if err != nil {
		h.metrics.RecordMessageBuildError("MDM^T02")
		var invalidCode *hl7.InvalidHL7CodeError
		if errors.As(err, &invalidCode) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
		} else {
			writeError(w, http.StatusInternalServerError, err.Error(), nil)
		}
		return
	}

	h.metrics.RecordMessageBuilt("MDM^T02")
	mdmLogger := logging.WithMessage("MDM^T02", req.PatientID)
	mdmLogger.Info().Msg("HL7 message built")
	writeJSON(w, http.StatusOK, messageResponse{MessageType: "MDM^T02", Message: msg})
}

// BuildORU handles POST /v1/messages/oru.
func (h *Handler) BuildORU(w http.ResponseWriter, r *http.Request) {
	var req buildMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	msg, err := h.hl7Builder.BuildR01(hl7.R01Request{
		Transcript:        req.Transcript,
		PatientID:         req.PatientID,
		OrderID:           req.OrderID,
		ProviderNPI:       req.ProviderNPI,
		LoincCode:         req.LoincCode,
		LoincDisplay:      req.LoincDisplay,
		SendingApp:        req.SendingApp,
		SendingFacility:   req.SendingFacility,
		ReceivingApp:      req.ReceivingApp,
		ReceivingFacility: req.ReceivingFacility,
	})
	if err != nil {
		h.metrics.RecordMessageBuildError("ORU^R01")
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	h.metrics.RecordMessageBuilt("ORU^R01")
	oruLogger := logging.WithMessage("ORU^R01", req.PatientID)
	oruLogger.Info().Msg("HL7 message built")
	writeJSON(w, http.StatusOK, messageResponse{MessageType: "ORU^R01", Message: msg})
}

func (h *Handler) publishCreated(r *http.Request, req buildDocumentRequest, format string) {
	if h.publisher == nil {
		return
	}
	_ = h.publisher.PublishCreated(r.Context(), req.EncounterID, events.DocumentCreated{
		EventType:   "document.created",
		PatientID:   req.PatientID,
		EncounterID: req.EncounterID,
		DocType:     req.DocType,
		Format:      format,
		Timestamp:   time.Now().UnixMilli(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string, violations []string) {
	writeJSON(w, status, errorResponse{Error: msg, Violations: violations})
}
