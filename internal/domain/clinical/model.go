package clinical

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/namaste/namaste/internal/domain/terminology"
	"github.com/namaste/namaste/pkg/fhirmodels"
)

// ValidationError reports a caller precondition violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Patient is the subject of a clinical bundle. LastVisit is display data
// for the patient picker and is not exported.
type Patient struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MRN       string `json:"mrn"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	LastVisit string `json:"last_visit,omitempty"`
}

// MaxAge bounds Patient.Age. The birth date is derived from the age as a
// time.Duration, which cannot span much more than 290 years.
const MaxAge = 150

func (p *Patient) Validate() error {
	if p == nil {
		return invalid("patient", "patient is required")
	}
	if strings.TrimSpace(p.ID) == "" {
		return invalid("patient.id", "is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("patient.name", "is required")
	}
	if strings.TrimSpace(p.MRN) == "" {
		return invalid("patient.mrn", "is required")
	}
	if p.Age < 0 {
		return invalid("patient.age", "must not be negative")
	}
	if p.Age > MaxAge {
		return invalid("patient.age", "must be at most %d", MaxAge)
	}
	return nil
}

// Severity is the closed set of condition severities.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

var severitySNOMED = map[Severity]string{
	SeverityMild:     fhirmodels.SeverityMildSNOMED,
	SeverityModerate: fhirmodels.SeverityModerateSNOMED,
	SeveritySevere:   fhirmodels.SeveritySevereSNOMED,
}

// SNOMED returns the SNOMED CT code of s.
func (s Severity) SNOMED() (string, bool) {
	code, ok := severitySNOMED[s]
	return code, ok
}

type ClinicalStatus string

const (
	StatusActive     ClinicalStatus = fhirmodels.ConditionActive
	StatusRecurrence ClinicalStatus = fhirmodels.ConditionRecurrence
	StatusRelapse    ClinicalStatus = fhirmodels.ConditionRelapse
	StatusInactive   ClinicalStatus = fhirmodels.ConditionInactive
	StatusRemission  ClinicalStatus = fhirmodels.ConditionRemission
	StatusResolved   ClinicalStatus = fhirmodels.ConditionResolved
)

func (s ClinicalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusRecurrence, StatusRelapse, StatusInactive, StatusRemission, StatusResolved:
		return true
	}
	return false
}

// ClinicalDiagnosis is one NAMASTE diagnosis with the ICD-11 mappings
// chosen for it, in order. Equivalence and score are kept as returned by
// $translate. An empty Severity means none was recorded.
type ClinicalDiagnosis struct {
	ID           string                   `json:"id"`
	PatientID    string                   `json:"patient_id"`
	NamasteCode  terminology.Concept      `json:"namaste_code"`
	ICD11Codes   []terminology.MappedCode `json:"icd11_codes"`
	Status       ClinicalStatus           `json:"status"`
	Severity     Severity                 `json:"severity,omitempty"`
	Notes        string                   `json:"notes,omitempty"`
	RecordedDate time.Time                `json:"recorded_date"`
}

func (d *ClinicalDiagnosis) Validate() error {
	if d.NamasteCode.System == "" || d.NamasteCode.Code == "" {
		return invalid("namaste_code", "system and code are required")
	}
	for i, c := range d.ICD11Codes {
		if c.Code == "" {
			return invalid(fmt.Sprintf("icd11_codes[%d]", i), "code is required")
		}
	}
	if !d.Status.Valid() {
		return invalid("status", "unknown clinical status %q", d.Status)
	}
	if d.Severity != "" {
		if _, ok := d.Severity.SNOMED(); !ok {
			return invalid("severity", "unknown severity %q", d.Severity)
		}
	}
	return nil
}

// DiagnosisInput is the caller-supplied part of a diagnosis. Status
// defaults to active.
type DiagnosisInput struct {
	NamasteCode terminology.Concept      `json:"namaste_code"`
	ICD11Codes  []terminology.MappedCode `json:"icd11_codes"`
	Status      ClinicalStatus           `json:"status,omitempty"`
	Severity    Severity                 `json:"severity,omitempty"`
	Notes       string                   `json:"notes,omitempty"`
}

// SessionState is a point-in-time copy of a Session.
type SessionState struct {
	Patient   *Patient            `json:"patient"`
	Diagnoses []ClinicalDiagnosis `json:"diagnoses"`
}
