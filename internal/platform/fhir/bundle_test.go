package fhir

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewCollectionBundle(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	patient := Patient{ResourceType: "Patient", ID: "p1"}
	cond := Condition{ResourceType: "Condition", ID: "condition-1", Subject: Reference{Reference: "Patient/p1"}}

	b, err := NewCollectionBundle("bundle-1", ts, patient, cond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ResourceType != "Bundle" {
		t.Errorf("expected resourceType Bundle, got %s", b.ResourceType)
	}
	if b.Type != BundleTypeCollection {
		t.Errorf("expected type collection, got %s", b.Type)
	}
	if len(b.Entry) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(b.Entry))
	}
	if b.Entry[0].FullURL != "Patient/p1" {
		t.Errorf("expected fullUrl Patient/p1, got %s", b.Entry[0].FullURL)
	}

	h, err := b.Header(1)
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if h.ResourceType != "Condition" || h.ID != "condition-1" {
		t.Errorf("unexpected header %+v", h)
	}

	var decoded Condition
	if err := b.DecodeEntry(1, &decoded); err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if decoded.Subject.Reference != "Patient/p1" {
		t.Errorf("expected subject Patient/p1, got %s", decoded.Subject.Reference)
	}
}

func TestBundle_HeaderOutOfRange(t *testing.T) {
	b := &Bundle{ResourceType: "Bundle", Type: BundleTypeCollection}
	if _, err := b.Header(0); err == nil {
		t.Error("expected error for empty bundle")
	}
}

func TestBundle_JSONShape(t *testing.T) {
	b, err := NewCollectionBundle("bundle-2", time.Now(), Patient{ResourceType: "Patient", ID: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	json.Unmarshal(raw, &m)
	if m["type"] != "collection" {
		t.Errorf("expected type collection, got %v", m["type"])
	}
	entries, ok := m["entry"].([]interface{})
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one entry, got %v", m["entry"])
	}
	res := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	if res["resourceType"] != "Patient" {
		t.Errorf("expected Patient resource, got %v", res["resourceType"])
	}
}
