package terminology

import (
	"fmt"

	"github.com/namaste/namaste/internal/platform/fhir"
)

// Property codes of $lookup that describe relationships or status rather
// than free-form attributes.
var relationshipProperties = map[string]bool{
	"parent": true,
	"child":  true,
}

// ParseLookup reads a $lookup response. display is required; name,
// version, definition, publisher and property entries are optional.
func ParseLookup(system, code string, p *fhir.Parameters) (*CodeDetails, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	d := &CodeDetails{
		System:        system,
		Code:          code,
		Status:        "active",
		Properties:    []Property{},
		Relationships: []Relationship{},
	}

	dp, ok := p.Lookup("display")
	if !ok {
		return nil, &fhir.ParseError{Path: "display", Reason: "lookup response has no display"}
	}
	display, err := dp.AsString("display")
	if err != nil {
		return nil, err
	}
	d.Display = display

	optional := []struct {
		name string
		dst  *string
	}{
		{"name", &d.SystemName},
		{"version", &d.Version},
		{"definition", &d.Definition},
		{"publisher", &d.Publisher},
	}
	for _, o := range optional {
		if sp, ok := p.Lookup(o.name); ok {
			v, err := sp.AsString(o.name)
			if err != nil {
				return nil, err
			}
			*o.dst = v
		}
	}

	for i, prop := range p.All("property") {
		path := fmt.Sprintf("property[%d]", i)
		cp, ok := prop.Lookup("code")
		if !ok {
			return nil, &fhir.ParseError{Path: path, Reason: "property has no code"}
		}
		pcode, err := cp.AsCode(path + ".code")
		if err != nil {
			return nil, err
		}
		var value string
		if vp, ok := prop.Lookup("value"); ok {
			value = vp.Text()
		}

		switch {
		case pcode == "status":
			if value != "" {
				d.Status = value
			}
		case relationshipProperties[pcode]:
			d.Relationships = append(d.Relationships, Relationship{
				Type:   pcode,
				Target: Concept{System: system, Code: value},
			})
		default:
			out := Property{Name: pcode, Value: value}
			if dp, ok := prop.Lookup("description"); ok {
				out.Description = dp.Text()
			}
			d.Properties = append(d.Properties, out)
		}
	}
	return d, nil
}

// ParseValidation reads a $validate-code response. result is required.
func ParseValidation(system, code string, p *fhir.Parameters) (*ValidationResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rp, ok := p.Lookup("result")
	if !ok {
		return nil, &fhir.ParseError{Path: "result", Reason: "validate-code response has no result"}
	}
	valid, err := rp.AsBoolean("result")
	if err != nil {
		return nil, err
	}

	v := &ValidationResult{Valid: valid, System: system, Code: code}
	if mp, ok := p.Lookup("message"); ok {
		if v.Message, err = mp.AsString("message"); err != nil {
			return nil, err
		}
	}
	if dp, ok := p.Lookup("display"); ok {
		if v.Display, err = dp.AsString("display"); err != nil {
			return nil, err
		}
	}
	if v.Message == "" {
		if valid {
			v.Message = "Code is valid"
		} else {
			v.Message = "Code is not valid"
		}
	}
	return v, nil
}
