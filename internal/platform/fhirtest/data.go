package fhirtest

import (
	"github.com/namaste/namaste/pkg/fhirmodels"
)

type codeSystem struct {
	URL       string
	Name      string
	Version   string
	Publisher string
	Concepts  []*concept
	byCode    map[string]*concept
}

type property struct {
	Code        string
	Value       string
	Description string
}

type concept struct {
	Code       string
	Display    string
	Definition string
	Status     string
	Parent     string
	Properties []property
}

type mapping struct {
	TargetSystem  string
	TargetCode    string
	TargetDisplay string
	Equivalence   string
	// Score < 0 means the mapping is unscored.
	Score float64
}

type conceptMap struct {
	URL       string
	Name      string
	Mappings  map[string][]mapping
	NoMapping map[string]string
}

func (cs *codeSystem) index() *codeSystem {
	cs.byCode = make(map[string]*concept, len(cs.Concepts))
	for _, c := range cs.Concepts {
		if c.Status == "" {
			c.Status = "active"
		}
		cs.byCode[c.Code] = c
	}
	return cs
}

func builtinCodeSystems() []*codeSystem {
	const publisher = "Ministry of AYUSH, Government of India"
	return []*codeSystem{
		(&codeSystem{
			URL:       fhirmodels.SystemAyurveda,
			Name:      "NAMASTE Ayurveda",
			Version:   "1.0.0",
			Publisher: publisher,
			Concepts: []*concept{
				{Code: "AY000", Display: "Dosha Imbalances", Definition: "Disorders arising from an imbalance of the three doshas."},
				{
					Code:       "AY001",
					Display:    "Vata Dosha Imbalance",
					Definition: "Constitutional imbalance characterized by excess Vata dosha, leading to symptoms of dryness, coldness, and irregular functions.",
					Parent:     "AY000",
					Properties: []property{
						{Code: "Dosha", Value: "Vata", Description: "Primary dosha involved"},
						{Code: "Severity", Value: "Moderate", Description: "Clinical severity level"},
						{Code: "Category", Value: "Constitutional", Description: "Type of disorder"},
					},
				},
				{
					Code:       "AY002",
					Display:    "Pitta Dosha Imbalance",
					Definition: "Constitutional imbalance characterized by excess Pitta dosha, presenting with heat, inflammation and acidity.",
					Parent:     "AY000",
					Properties: []property{{Code: "Dosha", Value: "Pitta", Description: "Primary dosha involved"}},
				},
				{
					Code:       "AY003",
					Display:    "Kapha Dosha Imbalance",
					Definition: "Constitutional imbalance characterized by excess Kapha dosha, presenting with heaviness and congestion.",
					Parent:     "AY000",
					Properties: []property{{Code: "Dosha", Value: "Kapha", Description: "Primary dosha involved"}},
				},
				{Code: "AY099", Display: "Amavata", Definition: "Joint disorder attributed to accumulated ama.", Status: "inactive"},
			},
		}).index(),
		(&codeSystem{
			URL:       fhirmodels.SystemSiddha,
			Name:      "NAMASTE Siddha",
			Version:   "1.0.0",
			Publisher: publisher,
			Concepts: []*concept{
				{
					Code:       "SI045",
					Display:    "Kabam Excess",
					Definition: "Excess of Kabam (phlegm) humor in Siddha medicine, causing symptoms of heaviness, sluggishness, and excessive mucus production.",
					Properties: []property{
						{Code: "Humor", Value: "Kabam", Description: "Primary humor involved"},
						{Code: "Manifestation", Value: "Excess", Description: "Type of imbalance"},
					},
				},
				{Code: "SI012", Display: "Vatham Excess", Definition: "Excess of Vatham humor in Siddha medicine."},
			},
		}).index(),
		(&codeSystem{
			URL:       fhirmodels.SystemUnani,
			Name:      "NAMASTE Unani",
			Version:   "1.0.0",
			Publisher: publisher,
			Concepts: []*concept{
				{
					Code:       "UN123",
					Display:    "Mizaj Imbalance",
					Definition: "Temperamental imbalance in Unani medicine affecting the natural constitution and physiological functions.",
					Properties: []property{
						{Code: "Temperament", Value: "Cold & Moist", Description: "Affected temperament"},
						{Code: "Organ", Value: "Brain", Description: "Primary organ affected"},
					},
				},
				{Code: "UN045", Display: "Balgham Excess"},
			},
		}).index(),
	}
}

func builtinConceptMap() *conceptMap {
	return &conceptMap{
		URL:  fhirmodels.ConceptMapNamasteICD11,
		Name: "NAMASTE to ICD-11",
		Mappings: map[string][]mapping{
			"AY001": {
				{TargetSystem: fhirmodels.SystemICD11TM2, TargetCode: "TM2.001", TargetDisplay: "Constitutional imbalance - Wind element", Equivalence: fhirmodels.EquivalenceEquivalent, Score: 0.95},
			},
			"SI045": {
				{TargetSystem: fhirmodels.SystemICD11TM2, TargetCode: "TM2.045", TargetDisplay: "Constitutional imbalance - Phlegm element", Equivalence: fhirmodels.EquivalenceEquivalent, Score: 0.88},
			},
			"AY002": {
				{TargetSystem: fhirmodels.SystemICD11TM2, TargetCode: "TM2.002", TargetDisplay: "Constitutional imbalance - Fire element", Equivalence: fhirmodels.EquivalenceEquivalent, Score: 0.91},
				{TargetSystem: fhirmodels.SystemICD11MMS, TargetCode: "MMS.DA42", TargetDisplay: "Gastritis", Equivalence: fhirmodels.EquivalenceWider, Score: 0.62},
			},
			"AY003": {
				{TargetSystem: fhirmodels.SystemICD11TM2, TargetCode: "TM2.003", TargetDisplay: "Constitutional imbalance - Water element", Equivalence: fhirmodels.EquivalenceInexact, Score: -1},
			},
		},
		NoMapping: map[string]string{
			"UN123": "No suitable ICD-11 mapping found",
		},
	}
}
