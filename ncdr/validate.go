package ncdr

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ValidationError rejects a single out-of-range field before anything is
// submitted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RequestError carries a non-zero return code from the submission endpoint.
type RequestError struct {
	Code    int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("submission rejected with code %d: %s", e.Code, e.Message)
}

const (
	maxSampleNumberLength = 25
	maxFreeTextLength     = 1500
	dateLayout            = "2006-01-02"
	dateTimeLayout        = "2006-01-02 15:04:05"
)

// SampleStatus values of the schema.
const (
	StatusFinalResponse = 1
	StatusCompPending   = 2
	StatusRevocation    = 3
	StatusComplementary = 4
)

var sampleMaterials = map[string]struct{}{
	"Svalg":      {},
	"Nasofarynx": {},
	"Näsa":       {},
	"Saliv":      {},
	"Sputum":     {},
	"Annat":      {},
}

var diagnosticMethods = map[string]struct{}{
	"A": {}, "B": {}, "C": {}, "D": {}, "E": {}, "F": {},
	"G": {}, "H": {}, "I": {}, "J": {}, "K": {}, "M": {}, "Z": {},
}

var patientSexes = map[string]struct{}{"m": {}, "k": {}, "o": {}}

func validateSampleNumber(value string) error {
	if value == "" {
		return &ValidationError{Field: "sampleNumber", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(value) > maxSampleNumberLength {
		return &ValidationError{Field: "sampleNumber", Reason: fmt.Sprintf("longer than %d characters", maxSampleNumberLength)}
	}
	return nil
}

func validateFreeText(field, value string) error {
	if utf8.RuneCountInString(value) > maxFreeTextLength {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("longer than %d characters", maxFreeTextLength)}
	}
	return nil
}

func validateDate(field, value string) error {
	if _, err := time.Parse(dateLayout, value); err != nil {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", value)}
	}
	return nil
}

func validateDateTime(field, value string) error {
	if _, err := time.Parse(dateTimeLayout, value); err != nil {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD HH:MM:SS timestamp", value)}
	}
	return nil
}

func validateStatus(value int) error {
	if value < StatusFinalResponse || value > StatusComplementary {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("%d is not in 1..4", value)}
	}
	return nil
}

func validateSampleMaterial(value string) error {
	if _, ok := sampleMaterials[value]; !ok {
		return &ValidationError{Field: "sampleMaterial", Reason: fmt.Sprintf("%q is not an accepted material", value)}
	}
	return nil
}

func validateDiagnosticMethod(value string) error {
	if _, ok := diagnosticMethods[value]; !ok {
		return &ValidationError{Field: "diagnosticMethod", Reason: fmt.Sprintf("%q is not in A..K, M, Z", value)}
	}
	return nil
}

func validatePatientSex(value string) error {
	if _, ok := patientSexes[value]; !ok {
		return &ValidationError{Field: "patientSex", Reason: fmt.Sprintf("%q is not one of m, k, o", value)}
	}
	return nil
}

func validateCounty(value string) error {
	if _, ok := countyNames[value]; !ok {
		return &ValidationError{Field: "county", Reason: fmt.Sprintf("%q is not a county code", value)}
	}
	return nil
}
