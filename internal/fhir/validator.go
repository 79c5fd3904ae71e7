package fhir

import (
	"fmt"
	"regexp"
	"strings"

	"clinical-ehr-bridge/internal/encoding"
)

var (
	instantPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)
	referencePattern = regexp.MustCompile(`^[A-Z][A-Za-z]*/\S+$`)
)

var (
	validStatuses    = []string{"current", "superseded", "entered-in-error"}
	validDocStatuses = []string{"preliminary", "final", "amended", "entered-in-error"}
)

// ValidationError aggregates every R4 rule violation found in one pass.
// Callers get the complete list in one report instead of one failure per
// round trip.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(
		"FHIR R4 DocumentReference validation failed (%d violation(s)):\n  - %s",
		len(e.Violations), strings.Join(e.Violations, "\n  - "),
	)
}

// Validate checks a DocumentReference against the R4 rules this service
// enforces. All rules are evaluated independently in a single pass; the
// returned *ValidationError carries every violation found, in rule order.
func Validate(doc *DocumentReference) error {
	var violations []string

	if doc.ResourceType != "DocumentReference" {
		violations = append(violations,
			fmt.Sprintf("resourceType must be \"DocumentReference\", got %q", doc.ResourceType))
	}

	switch {
	case doc.Status == "":
		violations = append(violations, "status is required")
	case !contains(validStatuses, doc.Status):
		violations = append(violations,
			fmt.Sprintf("status %q is not a valid R4 code %v", doc.Status, validStatuses))
	}

	if doc.DocStatus != "" && !contains(validDocStatuses, doc.DocStatus) {
		violations = append(violations,
			fmt.Sprintf("docStatus %q is not a valid R4 code %v", doc.DocStatus, validDocStatuses))
	}

	switch {
	case doc.Type == nil || len(doc.Type.Coding) == 0:
		violations = append(violations, "type.coding must have at least one entry")
	default:
		coding := doc.Type.Coding[0]
		if coding.System != LOINCSystem {
			violations = append(violations,
				fmt.Sprintf("type.coding[0].system must be %q, got %q", LOINCSystem, coding.System))
		}
		if coding.Code == "" {
			violations = append(violations, "type.coding[0].code is required")
		}
	}

	switch {
	case doc.Subject == nil || doc.Subject.Reference == "":
		violations = append(violations, "subject.reference is required")
	case !referencePattern.MatchString(doc.Subject.Reference):
		violations = append(violations,
			fmt.Sprintf("subject.reference %q must match \"ResourceType/id\"", doc.Subject.Reference))
	}

	for i, author := range doc.Author {
		if !referencePattern.MatchString(author.Reference) {
			violations = append(violations,
				fmt.Sprintf("author[%d].reference %q must match \"ResourceType/id\"", i, author.Reference))
		}
	}

	if doc.Context != nil {
		for i, enc := range doc.Context.Encounter {
			if !referencePattern.MatchString(enc.Reference) {
				violations = append(violations,
					fmt.Sprintf("context.encounter[%d].reference %q must match \"ResourceType/id\"", i, enc.Reference))
			}
		}
	}

	if doc.Date != "" && !instantPattern.MatchString(doc.Date) {
		violations = append(violations,
			fmt.Sprintf("date %q must be a FHIR instant (YYYY-MM-DDTHH:MM:SSZ)", doc.Date))
	}

	switch {
	case len(doc.Content) == 0:
		violations = append(violations, "content must have at least one entry")
	case doc.Content[0].Attachment.Data == "":
		violations = append(violations, "content[0].attachment.data is required")
	default:
		if _, err := encoding.DecodeBase64(doc.Content[0].Attachment.Data); err != nil {
			violations = append(violations, "content[0].attachment.data is not valid base64")
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
