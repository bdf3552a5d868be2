package terminology

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/namaste/namaste/internal/platform/fhir"
	"github.com/namaste/namaste/pkg/fhirmodels"
)

// ErrInvalidConcept is returned when a concept lacks its system or code.
var ErrInvalidConcept = errors.New("concept requires system and code")

// TerminologyClient is the subset of the FHIR terminology client the
// service depends on.
type TerminologyClient interface {
	Expand(ctx context.Context, valueSetURL, filter string, count int) (*fhir.ValueSet, error)
	Translate(ctx context.Context, conceptMapURL, system, code string) (*fhir.Parameters, error)
	Lookup(ctx context.Context, system, code string) (*fhir.Parameters, error)
	ValidateCode(ctx context.Context, system, code string) (*fhir.Parameters, error)
}

type ServiceOptions struct {
	ValueSetURL   string
	ConceptMapURL string
	Classifier    *Classifier
	History       HistoryRepository
	Logger        zerolog.Logger
	Now           func() time.Time
}

// Service runs the terminology workflows on top of a TerminologyClient.
type Service struct {
	client        TerminologyClient
	valueSetURL   string
	conceptMapURL string
	classifier    *Classifier
	history       HistoryRepository
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(client TerminologyClient, opts ServiceOptions) *Service {
	if opts.ValueSetURL == "" {
		opts.ValueSetURL = fhirmodels.ValueSetAyush
	}
	if opts.ConceptMapURL == "" {
		opts.ConceptMapURL = fhirmodels.ConceptMapNamasteICD11
	}
	if opts.Classifier == nil {
		opts.Classifier = NewClassifier(nil)
	}
	if opts.History == nil {
		opts.History = NewHistoryRepoMemory(DefaultHistoryCapacity)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		client:        client,
		valueSetURL:   opts.ValueSetURL,
		conceptMapURL: opts.ConceptMapURL,
		classifier:    opts.Classifier,
		history:       opts.History,
		logger:        opts.Logger.With().Str("component", "terminology").Logger(),
		now:           opts.Now,
	}
}

// Expand searches the configured value set.
func (s *Service) Expand(ctx context.Context, filter string, count int) ([]Concept, error) {
	vs, err := s.client.Expand(ctx, s.valueSetURL, filter, count)
	if err != nil {
		return nil, err
	}
	contains := vs.Concepts()
	out := make([]Concept, 0, len(contains))
	for _, c := range contains {
		out = append(out, Concept{System: c.System, Code: c.Code, Display: c.Display, Definition: c.Definition})
	}
	return out, nil
}

// Translate maps a concept through the configured concept map and records
// the result in history.
func (s *Service) Translate(ctx context.Context, concept Concept) (*TranslationResult, error) {
	if strings.TrimSpace(concept.System) == "" || strings.TrimSpace(concept.Code) == "" {
		return nil, ErrInvalidConcept
	}
	p, err := s.client.Translate(ctx, s.conceptMapURL, concept.System, concept.Code)
	if err != nil {
		return nil, err
	}
	res, err := NormalizeTranslation(concept, p, s.logger)
	if err != nil {
		return nil, err
	}

	entry := &HistoryEntry{ID: newID(), Result: *res, TranslatedAt: s.now().UTC()}
	if err := s.history.Add(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("code", concept.Code).Msg("failed to record translation history")
	}
	return res, nil
}

// LookupAndValidate issues $lookup and $validate-code concurrently. It
// succeeds when either branch succeeds; the failed branch is reported in
// the outcome. Both failing returns the combined error.
func (s *Service) LookupAndValidate(ctx context.Context, system, code string) (*LookupOutcome, error) {
	if strings.TrimSpace(system) == "" || strings.TrimSpace(code) == "" {
		return nil, ErrInvalidConcept
	}

	var (
		wg                  sync.WaitGroup
		details             *CodeDetails
		validation          *ValidationResult
		lookupErr, validErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p, err := s.client.Lookup(ctx, system, code)
		if err != nil {
			lookupErr = err
			return
		}
		details, lookupErr = ParseLookup(system, code, p)
	}()
	go func() {
		defer wg.Done()
		p, err := s.client.ValidateCode(ctx, system, code)
		if err != nil {
			validErr = err
			return
		}
		validation, validErr = ParseValidation(system, code, p)
	}()
	wg.Wait()

	if lookupErr != nil && validErr != nil {
		return nil, multierr.Combine(
			fmt.Errorf("lookup: %w", lookupErr),
			fmt.Errorf("validate-code: %w", validErr),
		)
	}

	out := &LookupOutcome{
		System:      system,
		Code:        code,
		SystemLabel: string(s.classifier.Classify(system)),
		Details:     details,
		Validation:  validation,
	}
	if lookupErr != nil {
		s.logger.Warn().Err(lookupErr).Str("code", code).Msg("lookup failed, returning validation only")
		out.LookupError = lookupErr.Error()
	}
	if validErr != nil {
		s.logger.Warn().Err(validErr).Str("code", code).Msg("validate-code failed, returning details only")
		out.ValidationError = validErr.Error()
	}
	return out, nil
}

// History returns recorded translations, newest first, with the total count.
func (s *Service) History(ctx context.Context, limit, offset int) ([]*HistoryEntry, int, error) {
	return s.history.List(ctx, limit, offset)
}

func (s *Service) ClearHistory(ctx context.Context) error {
	return s.history.Clear(ctx)
}

func (s *Service) Classify(system string) Label {
	return s.classifier.Classify(system)
}

func (s *Service) Rules() []Rule {
	return s.classifier.Rules()
}

// SearchFilter builds a filter from the system names and definition flag
// of a search request.
func (s *Service) SearchFilter(systems []string, hasDefinition bool) (SearchFilter, error) {
	labels, err := s.classifier.ParseSystemLabels(systems)
	if err != nil {
		return SearchFilter{}, err
	}
	return SearchFilter{Systems: labels, HasDefinition: hasDefinition}, nil
}

func (s *Service) Filter(concepts []Concept, f SearchFilter) []Concept {
	if !f.Active() {
		return concepts
	}
	return s.classifier.Filter(concepts, f)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
