package terminology

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/namaste/namaste/pkg/fhirmodels"
)

func TestClassifier_ParseSystemLabels(t *testing.T) {
	c := NewClassifier(nil)

	got, err := c.ParseSystemLabels([]string{"Ayurveda, unani", "", "ICD-11"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Label{LabelAyurveda, LabelUnani, LabelICD11}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if _, err := c.ParseSystemLabels([]string{"homeopathy"}); !errors.Is(err, ErrUnknownSystem) {
		t.Errorf("expected ErrUnknownSystem, got %v", err)
	}
}

func TestClassifier_FilterKeepsOrder(t *testing.T) {
	c := NewClassifier(nil)
	concepts := []Concept{
		{System: fhirmodels.SystemUnani, Code: "UN045"},
		{System: fhirmodels.SystemAyurveda, Code: "AY001", Definition: "excess Vata"},
		{System: fhirmodels.SystemUnani, Code: "UN123", Definition: "temperament"},
		{System: "http://example.org/other", Code: "X1", Definition: "other"},
	}

	got := c.Filter(concepts, SearchFilter{Systems: []Label{LabelUnani}})
	if len(got) != 2 || got[0].Code != "UN045" || got[1].Code != "UN123" {
		t.Errorf("unexpected unani results %+v", got)
	}
	got = c.Filter(concepts, SearchFilter{HasDefinition: true})
	if len(got) != 3 || got[0].Code != "AY001" {
		t.Errorf("unexpected definition results %+v", got)
	}
	if got := c.Filter(concepts, SearchFilter{}); len(got) != len(concepts) {
		t.Errorf("expected zero filter to keep everything, got %d", len(got))
	}
}

func TestWriteSearchCSV_Quoting(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSearchCSV(&buf, []Concept{
		{System: fhirmodels.SystemSiddha, Code: "SI045", Display: `Kabam "Excess"`, Definition: "heaviness, sluggishness"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "Code,Display,System,Definition" {
		t.Fatalf("unexpected csv %q", buf.String())
	}
	want := `SI045,"Kabam ""Excess""",` + fhirmodels.SystemSiddha + `,"heaviness, sluggishness"`
	if lines[1] != want {
		t.Errorf("expected %s, got %s", want, lines[1])
	}
}
