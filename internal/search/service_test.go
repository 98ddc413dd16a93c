package search

import (
	"encoding/json"
	"testing"

	"codex/api/internal/store"
)

func TestFlattenPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"simple", `{"name":"Viktor","clan":"Tremere"}`, "Tremere Viktor"},
		{"empty", ``, ""},
		{"not an object", `[1,2,3]`, ""},
		{"nested values kept raw", `{"stats":{"str":3}}`, `{"str":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flattenPayload(json.RawMessage(tt.payload))
			if got != tt.want {
				t.Fatalf("flattenPayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToRecord(t *testing.T) {
	doc := store.Document{
		ID:           "doc-1",
		Title:        "The Ashen Court",
		Type:         "GROUP",
		GameSystemID: "sys-vtm",
		Payload:      json.RawMessage(`{"purpose":"Shadow parliament of elders"}`),
	}
	record := toRecord(doc)
	if record.ID != "doc-1" || record.DocumentType != "GROUP" {
		t.Fatalf("record = %+v", record)
	}
	if record.Body != "Shadow parliament of elders" {
		t.Fatalf("body = %q", record.Body)
	}
}
