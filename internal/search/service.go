package search

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"

	"codex/api/internal/store"
)

// Service tries Meilisearch first and falls back to Postgres full-text
// search. meili may be nil when Meilisearch is not configured.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexDocument pushes an approved public document into Meilisearch.
// Postgres needs no push; its index column is generated from the row.
func (s *Service) IndexDocument(ctx context.Context, doc store.Document) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.IndexDocument(toRecord(doc))
}

// RemoveDocument drops a document from Meilisearch.
func (s *Service) RemoveDocument(ctx context.Context, documentID string) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.DeleteDocument(documentID)
}

// Reindex pushes a full document set, used at startup to rebuild a fresh
// Meilisearch instance from Postgres.
func (s *Service) Reindex(documents []store.Document) {
	if s.meili == nil || !s.meili.Healthy() || len(documents) == 0 {
		return
	}
	records := make([]DocumentRecord, 0, len(documents))
	for _, doc := range documents {
		records = append(records, toRecord(doc))
	}
	if err := s.meili.IndexDocuments(records); err != nil {
		log.Printf("search: reindex %d documents: %v", len(records), err)
	}
}

func toRecord(doc store.Document) DocumentRecord {
	return DocumentRecord{
		ID:           doc.ID,
		Title:        doc.Title,
		DocumentType: doc.Type,
		GameSystemID: doc.GameSystemID,
		Body:         flattenPayload(doc.Payload),
	}
}

// flattenPayload turns the JSON payload into plain searchable text with
// stable field order.
func flattenPayload(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		var value string
		if err := json.Unmarshal(fields[name], &value); err != nil {
			value = string(fields[name])
		}
		parts = append(parts, value)
	}
	return strings.Join(parts, " ")
}
