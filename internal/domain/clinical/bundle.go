package clinical

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/namaste/namaste/internal/platform/fhir"
	"github.com/namaste/namaste/pkg/fhirmodels"
)

// yearDays approximates a year when deriving a birth date from an age.
const yearDays = 365.25

// Assembler builds FHIR collection bundles from a patient and diagnoses.
type Assembler struct {
	MRNSystem string

	now   func() time.Time
	newID func() string
}

func NewAssembler(mrnSystem string) *Assembler {
	if mrnSystem == "" {
		mrnSystem = fhirmodels.SystemDefaultMRN
	}
	return &Assembler{MRNSystem: mrnSystem, now: time.Now, newID: newBundleID}
}

func newBundleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "bundle-" + uuid.NewString()
	}
	return "bundle-" + id.String()
}

// Assemble returns a collection bundle holding the Patient followed by one
// Condition per diagnosis, in order.
func (a *Assembler) Assemble(p *Patient, diagnoses []ClinicalDiagnosis) (*fhir.Bundle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := a.now()

	resources := make([]interface{}, 0, 1+len(diagnoses))
	resources = append(resources, a.patient(p, now))
	for i := range diagnoses {
		cond, err := condition(p, &diagnoses[i], i)
		if err != nil {
			return nil, err
		}
		resources = append(resources, cond)
	}

	b, err := fhir.NewCollectionBundle(a.newID(), now, resources...)
	if err != nil {
		return nil, fmt.Errorf("assemble bundle: %w", err)
	}
	return b, nil
}

func (a *Assembler) patient(p *Patient, now time.Time) fhir.Patient {
	var name fhir.HumanName
	if tokens := strings.Fields(p.Name); len(tokens) > 0 {
		name.Family = tokens[len(tokens)-1]
		name.Given = tokens[:len(tokens)-1]
	}
	age := time.Duration(float64(p.Age) * yearDays * float64(24*time.Hour))
	return fhir.Patient{
		ResourceType: "Patient",
		ID:           p.ID,
		Identifier:   []fhir.Identifier{{System: a.MRNSystem, Value: p.MRN}},
		Name:         []fhir.HumanName{name},
		Gender:       strings.ToLower(p.Gender),
		BirthDate:    now.Add(-age).UTC().Format("2006-01-02"),
	}
}

func condition(p *Patient, d *ClinicalDiagnosis, i int) (fhir.Condition, error) {
	if err := d.Validate(); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Field = fmt.Sprintf("diagnoses[%d].%s", i, ve.Field)
		}
		return fhir.Condition{}, err
	}

	codings := make([]fhir.Coding, 0, 1+len(d.ICD11Codes))
	codings = append(codings, fhir.Coding{System: d.NamasteCode.System, Code: d.NamasteCode.Code, Display: d.NamasteCode.Display})
	for _, c := range d.ICD11Codes {
		codings = append(codings, fhir.Coding{System: c.System, Code: c.Code, Display: c.Display})
	}

	cond := fhir.Condition{
		ResourceType: "Condition",
		ID:           fmt.Sprintf("condition-%d", i+1),
		Subject:      fhir.Reference{Reference: "Patient/" + p.ID},
		Code:         &fhir.CodeableConcept{Coding: codings},
		ClinicalStatus: &fhir.CodeableConcept{Coding: []fhir.Coding{{
			System:  fhirmodels.SystemConditionClinical,
			Code:    string(d.Status),
			Display: displayCase(string(d.Status)),
		}}},
	}
	if !d.RecordedDate.IsZero() {
		cond.RecordedDate = d.RecordedDate.UTC().Format(time.RFC3339)
	}
	if code, ok := d.Severity.SNOMED(); ok {
		cond.Severity = &fhir.CodeableConcept{Coding: []fhir.Coding{{
			System:  fhirmodels.SystemSNOMED,
			Code:    code,
			Display: displayCase(string(d.Severity)),
		}}}
	}
	if d.Notes != "" {
		cond.Note = []fhir.Annotation{{Text: d.Notes}}
	}
	return cond, nil
}

// displayCase upper-cases the first letter.
func displayCase(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
