package clinical

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/namaste/namaste/internal/domain/terminology"
)

// Session holds the patient and diagnoses being prepared for export.
// Diagnoses always belong to the selected patient.
type Session struct {
	mu        sync.RWMutex
	patient   *Patient
	diagnoses []ClinicalDiagnosis

	now   func() time.Time
	newID func() string
}

func NewSession() *Session {
	return &Session{now: time.Now, newID: newDiagnosisID}
}

func newDiagnosisID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "diag-" + uuid.NewString()
	}
	return "diag-" + id.String()
}

// SelectPatient makes p the subject. Switching to a different patient
// discards the diagnoses recorded for the previous one.
func (s *Session) SelectPatient(p Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patient != nil && s.patient.ID != p.ID {
		s.diagnoses = nil
	}
	s.patient = &p
	return nil
}

// ClearPatient removes the subject and its diagnoses.
func (s *Session) ClearPatient() {
	s.Reset()
}

// AddDiagnosis records a diagnosis for the selected patient.
func (s *Session) AddDiagnosis(in DiagnosisInput) (ClinicalDiagnosis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patient == nil {
		return ClinicalDiagnosis{}, invalid("patient", "select a patient before adding diagnoses")
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}
	icd := make([]terminology.MappedCode, 0, len(in.ICD11Codes))
	icd = append(icd, in.ICD11Codes...)

	d := ClinicalDiagnosis{
		ID:           s.newID(),
		PatientID:    s.patient.ID,
		NamasteCode:  in.NamasteCode,
		ICD11Codes:   icd,
		Status:       status,
		Severity:     in.Severity,
		Notes:        in.Notes,
		RecordedDate: s.now().UTC(),
	}
	if err := d.Validate(); err != nil {
		return ClinicalDiagnosis{}, err
	}
	s.diagnoses = append(s.diagnoses, d)
	return d, nil
}

// RemoveDiagnosis deletes the diagnosis at index.
func (s *Session) RemoveDiagnosis(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.diagnoses) {
		return invalid("index", "diagnosis %d out of range (%d recorded)", index, len(s.diagnoses))
	}
	s.diagnoses = append(s.diagnoses[:index], s.diagnoses[index+1:]...)
	return nil
}

func (s *Session) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := SessionState{Diagnoses: make([]ClinicalDiagnosis, len(s.diagnoses))}
	copy(st.Diagnoses, s.diagnoses)
	if s.patient != nil {
		p := *s.patient
		st.Patient = &p
	}
	return st
}

func (s *Session) Reset() {
	s.mu.Lock()
	s.patient = nil
	s.diagnoses = nil
	s.mu.Unlock()
}
