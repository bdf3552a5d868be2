package fhir

import (
	"fmt"
	"strings"
)

// Parameters is the FHIR operation input/output resource.
type Parameters struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id,omitempty"`
	Parameter    []Parameter `json:"parameter,omitempty"`
}

// Parameter is one named entry of a Parameters resource. Exactly one of the
// value fields, or Part, is expected to be populated; Kind reports which.
type Parameter struct {
	Name          string      `json:"name"`
	ValueString   *string     `json:"valueString,omitempty"`
	ValueBoolean  *bool       `json:"valueBoolean,omitempty"`
	ValueDecimal  *float64    `json:"valueDecimal,omitempty"`
	ValueInteger  *int        `json:"valueInteger,omitempty"`
	ValueCode     *string     `json:"valueCode,omitempty"`
	ValueUri      *string     `json:"valueUri,omitempty"`
	ValueDateTime *string     `json:"valueDateTime,omitempty"`
	ValueCoding   *Coding     `json:"valueCoding,omitempty"`
	Part          []Parameter `json:"part,omitempty"`
}

// ValueKind identifies which variant of a Parameter is populated.
type ValueKind string

const (
	KindNone     ValueKind = ""
	KindString   ValueKind = "valueString"
	KindBoolean  ValueKind = "valueBoolean"
	KindDecimal  ValueKind = "valueDecimal"
	KindInteger  ValueKind = "valueInteger"
	KindCode     ValueKind = "valueCode"
	KindUri      ValueKind = "valueUri"
	KindDateTime ValueKind = "valueDateTime"
	KindCoding   ValueKind = "valueCoding"
	KindPart     ValueKind = "part"
)

// ParseError reports a Parameters payload whose shape does not match what an
// operation expects.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "parameters: " + e.Reason
	}
	return fmt.Sprintf("parameters: %s: %s", e.Path, e.Reason)
}

func parseErrorf(path, format string, args ...interface{}) *ParseError {
	return &ParseError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// NewParameters builds a Parameters resource from the given entries.
func NewParameters(params ...Parameter) *Parameters {
	return &Parameters{ResourceType: "Parameters", Parameter: params}
}

func StringParam(name, v string) Parameter   { return Parameter{Name: name, ValueString: &v} }
func CodeParam(name, v string) Parameter     { return Parameter{Name: name, ValueCode: &v} }
func UriParam(name, v string) Parameter      { return Parameter{Name: name, ValueUri: &v} }
func BooleanParam(name string, v bool) Parameter {
	return Parameter{Name: name, ValueBoolean: &v}
}
func DecimalParam(name string, v float64) Parameter {
	return Parameter{Name: name, ValueDecimal: &v}
}
func CodingParam(name string, v Coding) Parameter { return Parameter{Name: name, ValueCoding: &v} }
func PartParam(name string, parts ...Parameter) Parameter {
	return Parameter{Name: name, Part: parts}
}

// Validate checks the resource type and that every parameter, at any depth,
// is named and carries at most one variant.
func (p *Parameters) Validate() error {
	if p == nil {
		return &ParseError{Reason: "response body is empty"}
	}
	if p.ResourceType != "Parameters" {
		return parseErrorf("resourceType", "expected Parameters, got %q", p.ResourceType)
	}
	for i := range p.Parameter {
		if err := p.Parameter[i].validate(fmt.Sprintf("parameter[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parameter) validate(path string) error {
	if strings.TrimSpace(p.Name) == "" {
		return parseErrorf(path, "parameter has no name")
	}
	if _, err := p.kind(path); err != nil {
		return err
	}
	for i := range p.Part {
		if err := p.Part[i].validate(fmt.Sprintf("%s.part[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the first top-level parameter with the given name.
func (p *Parameters) Lookup(name string) (*Parameter, bool) {
	return lookup(p.Parameter, name)
}

// All returns every top-level parameter with the given name, in order.
func (p *Parameters) All(name string) []Parameter {
	return all(p.Parameter, name)
}

// Lookup returns the first part with the given name.
func (p *Parameter) Lookup(name string) (*Parameter, bool) {
	return lookup(p.Part, name)
}

// All returns every part with the given name, in order.
func (p *Parameter) All(name string) []Parameter {
	return all(p.Part, name)
}

func lookup(params []Parameter, name string) (*Parameter, bool) {
	for i := range params {
		if params[i].Name == name {
			return &params[i], true
		}
	}
	return nil, false
}

func all(params []Parameter, name string) []Parameter {
	var out []Parameter
	for _, p := range params {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// Kind returns the populated variant, or KindNone when the parameter is
// empty or ambiguous. Validate reports the ambiguous case.
func (p *Parameter) Kind() ValueKind {
	k, _ := p.kind(p.Name)
	return k
}

func (p *Parameter) kind(path string) (ValueKind, error) {
	var kinds []ValueKind
	if p.ValueString != nil {
		kinds = append(kinds, KindString)
	}
	if p.ValueBoolean != nil {
		kinds = append(kinds, KindBoolean)
	}
	if p.ValueDecimal != nil {
		kinds = append(kinds, KindDecimal)
	}
	if p.ValueInteger != nil {
		kinds = append(kinds, KindInteger)
	}
	if p.ValueCode != nil {
		kinds = append(kinds, KindCode)
	}
	if p.ValueUri != nil {
		kinds = append(kinds, KindUri)
	}
	if p.ValueDateTime != nil {
		kinds = append(kinds, KindDateTime)
	}
	if p.ValueCoding != nil {
		kinds = append(kinds, KindCoding)
	}
	if len(p.Part) > 0 {
		kinds = append(kinds, KindPart)
	}
	switch len(kinds) {
	case 0:
		return KindNone, nil
	case 1:
		return kinds[0], nil
	default:
		return KindNone, parseErrorf(path, "parameter %q carries multiple values %v", p.Name, kinds)
	}
}

func (p *Parameter) expect(path string, want ValueKind) error {
	got, err := p.kind(path)
	if err != nil {
		return err
	}
	if got != want {
		if got == KindNone {
			return parseErrorf(path, "expected %s, parameter has no value", want)
		}
		return parseErrorf(path, "expected %s, got %s", want, got)
	}
	return nil
}

func (p *Parameter) AsBoolean(path string) (bool, error) {
	if err := p.expect(path, KindBoolean); err != nil {
		return false, err
	}
	return *p.ValueBoolean, nil
}

func (p *Parameter) AsString(path string) (string, error) {
	if err := p.expect(path, KindString); err != nil {
		return "", err
	}
	return *p.ValueString, nil
}

func (p *Parameter) AsCode(path string) (string, error) {
	if err := p.expect(path, KindCode); err != nil {
		return "", err
	}
	return *p.ValueCode, nil
}

func (p *Parameter) AsDecimal(path string) (float64, error) {
	if err := p.expect(path, KindDecimal); err != nil {
		return 0, err
	}
	return *p.ValueDecimal, nil
}

func (p *Parameter) AsCoding(path string) (Coding, error) {
	if err := p.expect(path, KindCoding); err != nil {
		return Coding{}, err
	}
	return *p.ValueCoding, nil
}

// Text renders any scalar variant as a string. Codings render as
// "system|code"; parts and empty parameters render as "".
func (p *Parameter) Text() string {
	switch p.Kind() {
	case KindString:
		return *p.ValueString
	case KindCode:
		return *p.ValueCode
	case KindUri:
		return *p.ValueUri
	case KindDateTime:
		return *p.ValueDateTime
	case KindBoolean:
		return fmt.Sprintf("%t", *p.ValueBoolean)
	case KindDecimal:
		return fmt.Sprintf("%g", *p.ValueDecimal)
	case KindInteger:
		return fmt.Sprintf("%d", *p.ValueInteger)
	case KindCoding:
		return p.ValueCoding.System + "|" + p.ValueCoding.Code
	}
	return ""
}
