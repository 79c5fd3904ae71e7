// Package encoding provides the field-level codecs shared by the FHIR and
// HL7v2 builders: base64 attachment data, HL7 special-character escaping,
// standard timestamp formats, and FHIR reference strings.
package encoding

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// EncodingError reports a malformed identifier or reference input.
type EncodingError struct {
	Field  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %s", e.Field, e.Reason)
}

// EncodeBase64 returns the standard padded base64 encoding of text (RFC 4648).
func EncodeBase64(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// DecodeBase64 decodes standard base64 back to the original text.
func DecodeBase64(data string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// hl7Escaper replaces the five HL7v2 delimiter characters with their escape
// sequences so free text cannot be mis-parsed as structure. The escape
// character itself must be replaced first, which strings.Replacer guarantees
// by matching all patterns in a single pass.
var hl7Escaper = strings.NewReplacer(
	`\`, `\E\`,
	`|`, `\F\`,
	`^`, `\S\`,
	`~`, `\R\`,
	`&`, `\T\`,
)

// hl7Unescaper is the inverse of hl7Escaper.
var hl7Unescaper = strings.NewReplacer(
	`\F\`, `|`,
	`\S\`, `^`,
	`\R\`, `~`,
	`\T\`, `&`,
	`\E\`, `\`,
)

// EscapeHL7 escapes HL7v2 delimiter characters in free-text field content.
// A conformant HL7 parser recovers the original text via un-escaping.
func EscapeHL7(text string) string {
	return hl7Escaper.Replace(text)
}

// UnescapeHL7 reverses EscapeHL7.
func UnescapeHL7(text string) string {
	return hl7Unescaper.Replace(text)
}

// HL7Timestamp formats an instant as the 14-digit HL7 DTM form
// YYYYMMDDHHMMSS. No timezone suffix; the caller's clock fixes the policy.
func HL7Timestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// FHIRInstant formats an instant as a FHIR instant with second precision,
// always UTC with the Z suffix, never an offset form.
func FHIRInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// Reference formats a FHIR literal reference "<ResourceType>/<id>".
// The resource type must start with an uppercase letter and the id must be
// non-empty.
func Reference(resourceType, id string) (string, error) {
	if resourceType == "" || resourceType[0] < 'A' || resourceType[0] > 'Z' {
		return "", &EncodingError{
			Field:  "resourceType",
			Reason: fmt.Sprintf("%q must start with an uppercase letter", resourceType),
		}
	}
	if strings.TrimSpace(id) == "" {
		return "", &EncodingError{
			Field:  "id",
			Reason: "must not be empty",
		}
	}
	return resourceType + "/" + id, nil
}
