package terminology

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/fhir"
	"github.com/namaste/namaste/pkg/fhirmodels"
)

var vata = Concept{System: fhirmodels.SystemAyurveda, Code: "AY001", Display: "Vata Dosha Imbalance"}

func match(parts ...fhir.Parameter) fhir.Parameter {
	return fhir.PartParam("match", parts...)
}

func tm2(code string) fhir.Parameter {
	return fhir.CodingParam("concept", fhir.Coding{System: fhirmodels.SystemICD11TM2, Code: code, Display: "display " + code})
}

func TestNormalizeTranslation_SingleMatch(t *testing.T) {
	p := fhir.NewParameters(
		fhir.BooleanParam("result", true),
		fhir.StringParam("message", "Found 1 mapping(s)"),
		match(fhir.CodeParam("equivalence", "equivalent"), tm2("TM2.001"), fhir.DecimalParam("score", 0.95)),
	)
	res, err := NormalizeTranslation(vata, p, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Message != "Found 1 mapping(s)" {
		t.Errorf("unexpected result header %+v", res)
	}
	if res.OriginalCode != vata {
		t.Errorf("expected original code preserved, got %+v", res.OriginalCode)
	}
	if len(res.MappedCodes) != 1 {
		t.Fatalf("expected 1 mapped code, got %d", len(res.MappedCodes))
	}
	mc := res.MappedCodes[0]
	if mc.Code != "TM2.001" || mc.System != fhirmodels.SystemICD11TM2 || mc.Equivalence != EquivalenceEquivalent {
		t.Errorf("unexpected mapped code %+v", mc)
	}
	if mc.Score == nil || *mc.Score != 0.95 {
		t.Errorf("expected score 0.95, got %v", mc.Score)
	}
}

func TestNormalizeTranslation_PreservesOrder(t *testing.T) {
	p := fhir.NewParameters(
		fhir.BooleanParam("result", true),
		match(fhir.CodeParam("equivalence", "wider"), tm2("B")),
		match(fhir.CodeParam("equivalence", "equivalent"), tm2("A")),
		match(fhir.CodeParam("equivalence", "narrower"), tm2("C")),
	)
	res, err := NormalizeTranslation(vata, p, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, mc := range res.MappedCodes {
		got = append(got, mc.Code)
	}
	if strings.Join(got, ",") != "B,A,C" {
		t.Errorf("expected server order B,A,C, got %v", got)
	}
	if res.MappedCodes[0].Score != nil {
		t.Error("expected nil score when the server sends none")
	}
}

func TestNormalizeTranslation_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		params  *fhir.Parameters
		success bool
		message string
	}{
		{"empty", fhir.NewParameters(), false, "Translation failed"},
		{"success without message", fhir.NewParameters(fhir.BooleanParam("result", true)), true, "Translation successful"},
		{"failure with message", fhir.NewParameters(fhir.BooleanParam("result", false), fhir.StringParam("message", "No suitable ICD-11 mapping found")), false, "No suitable ICD-11 mapping found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NormalizeTranslation(vata, tt.params, zerolog.Nop())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Success != tt.success || res.Message != tt.message {
				t.Errorf("got success=%v message=%q", res.Success, res.Message)
			}
			if res.MappedCodes == nil || len(res.MappedCodes) != 0 {
				t.Errorf("expected empty non-nil mapped codes, got %v", res.MappedCodes)
			}
		})
	}
}

func TestNormalizeTranslation_FailureDropsMatches(t *testing.T) {
	var buf bytes.Buffer
	p := fhir.NewParameters(
		fhir.BooleanParam("result", false),
		match(fhir.CodeParam("equivalence", "equivalent"), tm2("TM2.001")),
	)
	res, err := NormalizeTranslation(vata, p, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.MappedCodes) != 0 {
		t.Errorf("expected no mapped codes on failure, got %d", len(res.MappedCodes))
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected a warning, got %s", buf.String())
	}
}

func TestNormalizeTranslation_MissingEquivalence(t *testing.T) {
	var buf bytes.Buffer
	p := fhir.NewParameters(fhir.BooleanParam("result", true), match(tm2("TM2.001")))
	res, err := NormalizeTranslation(vata, p, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MappedCodes[0].Equivalence != EquivalenceRelatedTo {
		t.Errorf("expected relatedto, got %q", res.MappedCodes[0].Equivalence)
	}
	if !strings.Contains(buf.String(), "relatedto") {
		t.Errorf("expected fallback to be logged, got %s", buf.String())
	}
}

func TestNormalizeTranslation_UnknownEquivalencePassesThrough(t *testing.T) {
	p := fhir.NewParameters(fhir.BooleanParam("result", true), match(fhir.CodeParam("equivalence", "source-is-broader-than-target"), tm2("X")))
	res, err := NormalizeTranslation(vata, p, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eq := res.MappedCodes[0].Equivalence
	if eq != "source-is-broader-than-target" || eq.Known() {
		t.Errorf("expected verbatim unknown equivalence, got %q", eq)
	}
}

func TestNormalizeTranslation_ShapeErrors(t *testing.T) {
	tests := []struct {
		name   string
		params *fhir.Parameters
	}{
		{"wrong resource type", &fhir.Parameters{ResourceType: "Bundle"}},
		{"result as string", fhir.NewParameters(fhir.StringParam("result", "true"))},
		{"match without concept", fhir.NewParameters(fhir.BooleanParam("result", true), match(fhir.CodeParam("equivalence", "equivalent")))},
		{"match as value", fhir.NewParameters(fhir.BooleanParam("result", true), fhir.StringParam("match", "TM2.001"))},
		{"concept without code", fhir.NewParameters(fhir.BooleanParam("result", true), match(fhir.CodingParam("concept", fhir.Coding{System: "s"})))},
		{"score out of range", fhir.NewParameters(fhir.BooleanParam("result", true), match(tm2("A"), fhir.DecimalParam("score", 1.5)))},
		{"concept as string", fhir.NewParameters(fhir.BooleanParam("result", true), match(fhir.StringParam("concept", "TM2.001")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeTranslation(vata, tt.params, zerolog.Nop())
			var pe *fhir.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}
