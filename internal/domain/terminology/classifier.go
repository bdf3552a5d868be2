package terminology

import (
	"strings"

	"github.com/namaste/namaste/internal/config"
)

// Label is the human-readable category of a coding system.
type Label string

const (
	LabelAyurveda Label = "Ayurveda"
	LabelSiddha   Label = "Siddha"
	LabelUnani    Label = "Unani"
	LabelICD11    Label = "ICD-11"
	LabelUnknown  Label = "Unknown"
)

// Rule maps a case-insensitive substring of a system URI to a label.
type Rule struct {
	Token string `json:"token"`
	Label Label  `json:"label"`
}

// DefaultRules is the built-in token table. Order matters: the first
// matching rule wins.
var DefaultRules = []Rule{
	{Token: "ayurveda", Label: LabelAyurveda},
	{Token: "siddha", Label: LabelSiddha},
	{Token: "unani", Label: LabelUnani},
	{Token: "icd11", Label: LabelICD11},
	{Token: "icd.who.int", Label: LabelICD11},
}

// ParseRules reads a "token=Label,token=Label" table.
func ParseRules(s string) ([]Rule, error) {
	labels, err := config.ParseSystemLabels(s)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(labels))
	for _, l := range labels {
		rules = append(rules, Rule{Token: l.Token, Label: Label(l.Label)})
	}
	return rules, nil
}

// Classifier labels system URIs by substring matching. It is a heuristic
// tolerant of URI variations, not a registry lookup.
type Classifier struct {
	rules []Rule
}

// NewClassifier copies rules, lower-casing tokens. Empty rules fall back
// to DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		tok := strings.ToLower(strings.TrimSpace(r.Token))
		if tok == "" {
			continue
		}
		c.rules = append(c.rules, Rule{Token: tok, Label: r.Label})
	}
	return c
}

// Classify returns the label of the first rule whose token occurs in
// system, or LabelUnknown.
func (c *Classifier) Classify(system string) Label {
	s := strings.ToLower(system)
	for _, r := range c.rules {
		if strings.Contains(s, r.Token) {
			return r.Label
		}
	}
	return LabelUnknown
}

// Rules returns a copy of the active token table.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}
