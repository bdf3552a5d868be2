package clinical

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/fhir"
)

// BundleUploader submits bundles to the EMR endpoint.
type BundleUploader interface {
	UploadBundle(ctx context.Context, b *fhir.Bundle) (*fhir.Bundle, error)
}

// Export is a downloadable bundle document.
type Export struct {
	Filename string
	Data     []byte
}

type SubmitResult struct {
	BundleID string `json:"bundle_id"`
	Message  string `json:"message"`
}

// Service previews, exports and submits the bundle of a Session.
type Service struct {
	assembler *Assembler
	uploader  BundleUploader
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(assembler *Assembler, uploader BundleUploader, logger zerolog.Logger) *Service {
	return &Service{
		assembler: assembler,
		uploader:  uploader,
		logger:    logger.With().Str("component", "clinical").Logger(),
		now:       time.Now,
	}
}

// Preview assembles the session's bundle. A session without diagnoses is
// rejected here even though the assembler would accept it.
func (s *Service) Preview(sess *Session) (*fhir.Bundle, error) {
	st := sess.Snapshot()
	if st.Patient == nil {
		return nil, invalid("patient", "select a patient first")
	}
	if len(st.Diagnoses) == 0 {
		return nil, invalid("diagnoses", "add at least one diagnosis")
	}
	return s.assembler.Assemble(st.Patient, st.Diagnoses)
}

// Export renders b as indented JSON named after its patient.
func (s *Service) Export(b *fhir.Bundle) (*Export, error) {
	h, err := b.Header(0)
	if err != nil {
		return nil, err
	}
	if h.ResourceType != "Patient" {
		return nil, fmt.Errorf("bundle %s: first entry is %s, want Patient", b.ID, h.ResourceType)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return &Export{
		Filename: fmt.Sprintf("fhir-bundle-%s-%d.json", h.ID, s.now().UnixMilli()),
		Data:     data,
	}, nil
}

// Submit uploads the session's bundle and resets the session on success.
func (s *Service) Submit(ctx context.Context, sess *Session) (*SubmitResult, error) {
	b, err := s.Preview(sess)
	if err != nil {
		return nil, err
	}
	stored, err := s.uploader.UploadBundle(ctx, b)
	if err != nil {
		s.logger.Error().Err(err).Str("bundle_id", b.ID).Msg("bundle submission failed")
		return nil, err
	}

	id := b.ID
	if stored != nil && stored.ID != "" {
		id = stored.ID
	}
	sess.Reset()
	s.logger.Info().Str("bundle_id", id).Int("entries", len(b.Entry)).Msg("bundle submitted")
	return &SubmitResult{
		BundleID: id,
		Message:  "Bundle successfully submitted to EMR. Bundle ID: " + id,
	}, nil
}
