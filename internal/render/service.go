// Package render turns documents into printable PDF sheets and stores them
// as artifacts.
package render

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codex/api/internal/store"
)

type systemLookup interface {
	GetGameSystem(ctx context.Context, id string) (store.GameSystem, error)
}

type Service struct {
	systems   systemLookup
	artifacts *ArtifactStore
}

func NewService(systems systemLookup, artifacts *ArtifactStore) *Service {
	return &Service{systems: systems, artifacts: artifacts}
}

// Render produces a PDF for the document and uploads it, returning the
// artifact reference.
func (s *Service) Render(ctx context.Context, doc store.Document) (string, error) {
	systemName := doc.GameSystemID
	system, err := s.systems.GetGameSystem(ctx, doc.GameSystemID)
	if err == nil {
		systemName = system.Name
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	html, err := RenderHTML(doc, systemName)
	if err != nil {
		return "", err
	}

	pdf, err := renderPDF(ctx, html)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("documents/%s/%s.pdf", doc.ID, time.Now().UTC().Format("20060102T150405Z"))
	return s.artifacts.Put(ctx, key, pdf, "application/pdf")
}
