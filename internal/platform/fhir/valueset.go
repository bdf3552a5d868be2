package fhir

// ValueSet is the result of a ValueSet $expand operation.
type ValueSet struct {
	ResourceType string     `json:"resourceType"`
	ID           string     `json:"id,omitempty"`
	URL          string     `json:"url,omitempty"`
	Name         string     `json:"name,omitempty"`
	Status       string     `json:"status,omitempty"`
	Expansion    *Expansion `json:"expansion,omitempty"`
}

type Expansion struct {
	Identifier string             `json:"identifier,omitempty"`
	Timestamp  string             `json:"timestamp,omitempty"`
	Total      *int               `json:"total,omitempty"`
	Offset     *int               `json:"offset,omitempty"`
	Contains   []ValueSetContains `json:"contains,omitempty"`
}

// ValueSetContains is one concept of an expansion. Definition is not part of
// the R4 element but is returned by the NAMASTE server.
type ValueSetContains struct {
	System     string `json:"system,omitempty"`
	Version    string `json:"version,omitempty"`
	Code       string `json:"code,omitempty"`
	Display    string `json:"display,omitempty"`
	Definition string `json:"definition,omitempty"`
}

// Concepts returns the expansion contents, or nil when the server returned
// no expansion.
func (v *ValueSet) Concepts() []ValueSetContains {
	if v == nil || v.Expansion == nil {
		return nil
	}
	return v.Expansion.Contains
}
