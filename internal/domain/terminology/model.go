package terminology

import (
	"time"

	"github.com/namaste/namaste/pkg/fhirmodels"
)

// Concept is a code in a coding system. Identity is the (system, code)
// pair; display and definition are presentation only.
type Concept struct {
	System     string `json:"system"`
	Code       string `json:"code"`
	Display    string `json:"display"`
	Definition string `json:"definition,omitempty"`
}

// Key returns the identity of the concept as "system|code".
func (c Concept) Key() string {
	return c.System + "|" + c.Code
}

// Equivalence is a FHIR R4 ConceptMap equivalence code. Codes outside the
// known set are carried verbatim.
type Equivalence string

const (
	EquivalenceRelatedTo   Equivalence = fhirmodels.EquivalenceRelatedTo
	EquivalenceEquivalent  Equivalence = fhirmodels.EquivalenceEquivalent
	EquivalenceEqual       Equivalence = fhirmodels.EquivalenceEqual
	EquivalenceWider       Equivalence = fhirmodels.EquivalenceWider
	EquivalenceSubsumes    Equivalence = fhirmodels.EquivalenceSubsumes
	EquivalenceNarrower    Equivalence = fhirmodels.EquivalenceNarrower
	EquivalenceSpecializes Equivalence = fhirmodels.EquivalenceSpecializes
	EquivalenceInexact     Equivalence = fhirmodels.EquivalenceInexact
	EquivalenceUnmatched   Equivalence = fhirmodels.EquivalenceUnmatched
	EquivalenceDisjoint    Equivalence = fhirmodels.EquivalenceDisjoint
)

// Known reports whether e is one of the FHIR R4 equivalence codes.
func (e Equivalence) Known() bool {
	switch e {
	case EquivalenceRelatedTo, EquivalenceEquivalent, EquivalenceEqual, EquivalenceWider,
		EquivalenceSubsumes, EquivalenceNarrower, EquivalenceSpecializes, EquivalenceInexact,
		EquivalenceUnmatched, EquivalenceDisjoint:
		return true
	}
	return false
}

// MappedCode is one translation target. A nil Score means the server did
// not score the mapping, not zero confidence.
type MappedCode struct {
	System      string      `json:"system"`
	Code        string      `json:"code"`
	Display     string      `json:"display"`
	Equivalence Equivalence `json:"equivalence"`
	Score       *float64    `json:"score,omitempty"`
}

// TranslationResult is a normalized $translate response. MappedCodes is
// always empty when Success is false; when Success is true it may be empty
// because no mapping exists.
type TranslationResult struct {
	Success      bool         `json:"success"`
	OriginalCode Concept      `json:"original_code"`
	MappedCodes  []MappedCode `json:"mapped_codes"`
	Message      string       `json:"message"`
}

type Property struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

type Relationship struct {
	Type   string  `json:"type"`
	Target Concept `json:"target"`
}

// CodeDetails is the parsed result of CodeSystem/$lookup.
type CodeDetails struct {
	System        string         `json:"system"`
	Code          string         `json:"code"`
	Display       string         `json:"display"`
	Definition    string         `json:"definition,omitempty"`
	Status        string         `json:"status"`
	SystemName    string         `json:"system_name,omitempty"`
	Version       string         `json:"version,omitempty"`
	Publisher     string         `json:"publisher,omitempty"`
	Properties    []Property     `json:"properties"`
	Relationships []Relationship `json:"relationships"`
}

// ValidationResult is the parsed result of CodeSystem/$validate-code.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
	Message string `json:"message"`
}

// LookupOutcome joins the concurrent lookup and validation of one code.
// At least one of Details and Validation is set; the failed branch, if
// any, is reported in its error field.
type LookupOutcome struct {
	System          string            `json:"system"`
	Code            string            `json:"code"`
	SystemLabel     string            `json:"system_label"`
	Details         *CodeDetails      `json:"details,omitempty"`
	Validation      *ValidationResult `json:"validation,omitempty"`
	LookupError     string            `json:"lookup_error,omitempty"`
	ValidationError string            `json:"validation_error,omitempty"`
}

// HistoryEntry is one recorded translation.
type HistoryEntry struct {
	ID           string            `json:"id"`
	Result       TranslationResult `json:"result"`
	TranslatedAt time.Time         `json:"translated_at"`
}
