package fhir

import (
	"encoding/json"
	"fmt"
	"time"
)

const BundleTypeCollection = "collection"

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// NewCollectionBundle creates a collection Bundle whose entries hold the
// given resources in order.
func NewCollectionBundle(id string, timestamp time.Time, resources ...interface{}) (*Bundle, error) {
	entries := make([]BundleEntry, 0, len(resources))
	for i, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal bundle entry %d: %w", i, err)
		}
		entries = append(entries, BundleEntry{
			FullURL:  entryFullURL(raw),
			Resource: raw,
		})
	}

	ts := timestamp.UTC()
	return &Bundle{
		ResourceType: "Bundle",
		ID:           id,
		Type:         BundleTypeCollection,
		Timestamp:    &ts,
		Entry:        entries,
	}, nil
}

// Header decodes the resourceType and id of entry i.
func (b *Bundle) Header(i int) (ResourceHeader, error) {
	var h ResourceHeader
	if i < 0 || i >= len(b.Entry) {
		return h, fmt.Errorf("bundle entry %d out of range (%d entries)", i, len(b.Entry))
	}
	if err := json.Unmarshal(b.Entry[i].Resource, &h); err != nil {
		return h, fmt.Errorf("decode bundle entry %d: %w", i, err)
	}
	return h, nil
}

// DecodeEntry unmarshals the resource of entry i into out.
func (b *Bundle) DecodeEntry(i int, out interface{}) error {
	if i < 0 || i >= len(b.Entry) {
		return fmt.Errorf("bundle entry %d out of range (%d entries)", i, len(b.Entry))
	}
	return json.Unmarshal(b.Entry[i].Resource, out)
}

func entryFullURL(raw json.RawMessage) string {
	var h ResourceHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return ""
	}
	if h.ResourceType != "" && h.ID != "" {
		return fmt.Sprintf("%s/%s", h.ResourceType, h.ID)
	}
	return ""
}
