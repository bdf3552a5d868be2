package fhirmodels

// Common FHIR code constants used across the application.

// Terminology system URIs.
const (
	SystemAyurveda = "https://namaste.ayush.gov.in/fhir/CodeSystem/ayurveda"
	SystemSiddha   = "https://namaste.ayush.gov.in/fhir/CodeSystem/siddha"
	SystemUnani    = "https://namaste.ayush.gov.in/fhir/CodeSystem/unani"
	SystemICD11TM2 = "https://icd.who.int/browse11/l-m/en#/http://id.who.int/icd/entity/tm2"
	SystemICD11MMS = "https://icd.who.int/browse11/l-m/en#/http://id.who.int/icd/entity/mms"

	SystemSNOMED            = "http://snomed.info/sct"
	SystemConditionClinical = "http://terminology.hl7.org/CodeSystem/condition-clinical"
	SystemDefaultMRN        = "http://hospital.example.org/mrn"
)

// Canonical URLs published by the NAMASTE terminology server.
const (
	ValueSetAyush           = "https://namaste.ayush.gov.in/fhir/ValueSet/ayush"
	ConceptMapNamasteICD11 = "https://namaste.ayush.gov.in/fhir/ConceptMap/namaste-to-icd11"
)

// ConditionClinicalStatus codes.
const (
	ConditionActive     = "active"
	ConditionRecurrence = "recurrence"
	ConditionRelapse    = "relapse"
	ConditionInactive   = "inactive"
	ConditionRemission  = "remission"
	ConditionResolved   = "resolved"
)

// Condition severity codes (SNOMED CT).
const (
	SeverityMildSNOMED     = "255604002"
	SeverityModerateSNOMED = "6736007"
	SeveritySevereSNOMED   = "24484000"
)

// AdministrativeGender codes.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// ConceptMapEquivalence codes per FHIR R4.
const (
	EquivalenceRelatedTo   = "relatedto"
	EquivalenceEquivalent  = "equivalent"
	EquivalenceEqual       = "equal"
	EquivalenceWider       = "wider"
	EquivalenceSubsumes    = "subsumes"
	EquivalenceNarrower    = "narrower"
	EquivalenceSpecializes = "specializes"
	EquivalenceInexact     = "inexact"
	EquivalenceUnmatched   = "unmatched"
	EquivalenceDisjoint    = "disjoint"
)
