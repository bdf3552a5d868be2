package terminology

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnknownSystem is returned for a system filter that names no label.
var ErrUnknownSystem = errors.New("unknown coding system")

// SearchResultsFilename is the attachment name of a CSV search export.
const SearchResultsFilename = "namaste-search-results.csv"

var searchCSVHeader = []string{"Code", "Display", "System", "Definition"}

// SearchFilter narrows search results after expansion. Systems keeps
// concepts whose system classifies as one of the labels; empty means any
// system. The zero value keeps everything.
type SearchFilter struct {
	Systems       []Label
	HasDefinition bool
}

func (f SearchFilter) Active() bool {
	return len(f.Systems) > 0 || f.HasDefinition
}

// ParseSystemLabels resolves names such as "ayurveda" or "Siddha" against
// the labels of the active rules. Each value may itself be a
// comma-separated list.
func (c *Classifier) ParseSystemLabels(values []string) ([]Label, error) {
	known := make(map[string]Label, len(c.rules))
	for _, r := range c.rules {
		known[strings.ToLower(string(r.Label))] = r.Label
	}

	var out []Label
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			label, ok := known[name]
			if !ok {
				return nil, fmt.Errorf("%w %q", ErrUnknownSystem, name)
			}
			out = append(out, label)
		}
	}
	return out, nil
}

// Filter returns the concepts that pass f, in their original order.
func (c *Classifier) Filter(concepts []Concept, f SearchFilter) []Concept {
	out := make([]Concept, 0, len(concepts))
	for _, con := range concepts {
		if f.HasDefinition && strings.TrimSpace(con.Definition) == "" {
			continue
		}
		if len(f.Systems) > 0 && !containsLabel(f.Systems, c.Classify(con.System)) {
			continue
		}
		out = append(out, con)
	}
	return out
}

func containsLabel(labels []Label, l Label) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// WriteSearchCSV writes concepts as CSV with a Code, Display, System,
// Definition header.
func WriteSearchCSV(w io.Writer, concepts []Concept) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(searchCSVHeader); err != nil {
		return fmt.Errorf("search export csv: write header: %w", err)
	}
	for _, con := range concepts {
		if err := cw.Write([]string{con.Code, con.Display, con.System, con.Definition}); err != nil {
			return fmt.Errorf("search export csv: write record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("search export csv: %w", err)
	}
	return nil
}
