package app

import (
	"context"
	"log"
	"time"

	"codex/api/internal/config"
	"codex/api/internal/rbac"
	"codex/api/internal/revisions"
	"codex/api/internal/search"
	"codex/api/internal/store"
)

// Actor is a resolved identity. Authentication happens upstream; this
// service only needs the role attached to an actor ID.
type Actor struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Role        rbac.Role `json:"role"`
}

// ActorResolver turns an actor ID into an Actor or a NOT_FOUND domain error.
type ActorResolver interface {
	ResolveActor(ctx context.Context, id string) (Actor, error)
}

// Renderer produces a printable artifact for a document and returns a
// reference to where it was stored.
type Renderer interface {
	Render(ctx context.Context, doc store.Document) (string, error)
}

// Notifier delivers event notifications to actors. Failures are logged, not
// surfaced; moderation never blocks on delivery.
type Notifier interface {
	Notify(ctx context.Context, actorID, eventKind, subject, body string) error
}

// SearchIndexer keeps the document search index in step with moderation
// outcomes.
type SearchIndexer interface {
	IndexDocument(ctx context.Context, doc store.Document) error
	RemoveDocument(ctx context.Context, documentID string) error
}

// RevisionBrowser reads a document's payload history.
type RevisionBrowser interface {
	History(documentID string, limit int) ([]revisions.Revision, error)
	PayloadAt(documentID, hash string) ([]byte, error)
}

type serviceStore interface {
	Ping(ctx context.Context) error
	GetActor(ctx context.Context, id string) (store.Actor, error)
	InsertActor(ctx context.Context, actor store.Actor) error
	InsertGameSystem(ctx context.Context, system store.GameSystem) (bool, error)
	GameSystemCount(ctx context.Context) (int, error)
	SummaryCounts(ctx context.Context) (store.SummaryCounts, error)
}

// Service is the composition root for the governance core. The subsystem
// services carry the behavior; Service adds the cross-cutting hooks that
// run after moderation outcomes.
type Service struct {
	cfg config.Config

	store serviceStore

	Registry   *Registry
	Matrix     *Matrix
	Documents  *Documents
	Votes      *Votes
	Moderation *ModerationLog

	identity ActorResolver
	renderer Renderer
	notifier Notifier
	search   SearchIndexer
	finder   *search.Service
	browser  RevisionBrowser

	hookTimeout time.Duration
}

type Deps struct {
	Store     *store.PostgresStore
	Cache     AvailabilityCache
	Identity  ActorResolver
	Revisions RevisionRecorder
	Renderer  Renderer
	Notifier  Notifier
	Search    SearchIndexer
	Finder    *search.Service
	Browser   RevisionBrowser
}

func New(cfg config.Config, deps Deps) *Service {
	registry := NewRegistry(deps.Store, deps.Cache)
	matrix := NewMatrix(registry, deps.Store, deps.Cache)
	return &Service{
		cfg:         cfg,
		store:       deps.Store,
		Registry:    registry,
		Matrix:      matrix,
		Documents:   NewDocuments(deps.Store, matrix, deps.Identity, deps.Revisions),
		Votes:       NewVotes(deps.Store, deps.Identity),
		Moderation:  NewModerationLog(deps.Store, deps.Identity),
		identity:    deps.Identity,
		renderer:    deps.Renderer,
		notifier:    deps.Notifier,
		search:      deps.Search,
		finder:      deps.Finder,
		browser:     deps.Browser,
		hookTimeout: 30 * time.Second,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// RequireRole resolves an actor and checks the role gate for an action.
func (s *Service) RequireRole(ctx context.Context, actorID string, action rbac.Action) error {
	actor, err := s.identity.ResolveActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !rbac.Can(actor.Role, action) {
		return permissionError("ROLE_REQUIRED", "actor "+actorID+" may not perform this action")
	}
	return nil
}

func (s *Service) Summary(ctx context.Context) (store.SummaryCounts, error) {
	return s.store.SummaryCounts(ctx)
}

// SearchDocuments answers a text query over public documents.
func (s *Service) SearchDocuments(q search.Query) search.Response {
	if s.finder == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.finder.Search(q)
}

// Moderate runs the moderation decision and then the after-effects: search
// indexing, owner notification, and (on approval) artifact rendering. The
// after-effects are fire and forget.
func (s *Service) Moderate(ctx context.Context, documentID, newStatus, moderatorID, reason string) (store.Document, error) {
	doc, err := s.Documents.Moderate(ctx, documentID, newStatus, moderatorID, reason)
	if err != nil {
		return store.Document{}, err
	}

	go s.afterModeration(doc)
	return doc, nil
}

// ChangeVisibility changes visibility and keeps the search index in step:
// going private removes the document from search.
func (s *Service) ChangeVisibility(ctx context.Context, documentID, newVisibility, requesterID string) (store.Document, error) {
	doc, err := s.Documents.ChangeVisibility(ctx, documentID, newVisibility, requesterID)
	if err != nil {
		return store.Document{}, err
	}
	if doc.Visibility == VisibilityPrivate && s.search != nil {
		go func() {
			hookCtx, cancel := context.WithTimeout(context.Background(), s.hookTimeout)
			defer cancel()
			if err := s.search.RemoveDocument(hookCtx, doc.ID); err != nil {
				log.Printf("service: deindex %s: %v", doc.ID, err)
			}
		}()
	}
	return doc, nil
}

// Report files a report and notifies the moderation queue owner when the
// flag threshold trips.
func (s *Service) Report(ctx context.Context, documentID, actorID, reason string) (ReportResult, error) {
	result, err := s.Moderation.Report(ctx, documentID, actorID, reason)
	if err != nil {
		return ReportResult{}, err
	}
	if result.Flagged && s.notifier != nil {
		go func() {
			hookCtx, cancel := context.WithTimeout(context.Background(), s.hookTimeout)
			defer cancel()
			doc, err := s.Documents.store.GetDocument(hookCtx, documentID)
			if err != nil {
				log.Printf("service: flag notification for %s: %v", documentID, err)
				return
			}
			if doc.OwnerID == nil {
				return
			}
			if err := s.notifier.Notify(hookCtx, *doc.OwnerID, "document.flagged",
				"Your document was flagged for review",
				"\""+doc.Title+"\" received multiple reports and is awaiting moderator review."); err != nil {
				log.Printf("service: flag notification for %s: %v", documentID, err)
			}
		}()
	}
	return result, nil
}

func (s *Service) afterModeration(doc store.Document) {
	ctx, cancel := context.WithTimeout(context.Background(), s.hookTimeout)
	defer cancel()

	if s.search != nil {
		var err error
		if doc.ModerationStatus == ModerationApproved && doc.Visibility == VisibilityPublic {
			err = s.search.IndexDocument(ctx, doc)
		} else {
			err = s.search.RemoveDocument(ctx, doc.ID)
		}
		if err != nil {
			log.Printf("service: search sync %s: %v", doc.ID, err)
		}
	}

	if s.notifier != nil && doc.OwnerID != nil {
		subject := "Your document was approved"
		body := "\"" + doc.Title + "\" passed moderation and is now publicly listed."
		if doc.ModerationStatus == ModerationRejected {
			subject = "Your document was rejected"
			body = "\"" + doc.Title + "\" was rejected: " + doc.RejectionReason
		}
		if err := s.notifier.Notify(ctx, *doc.OwnerID, "document.moderated", subject, body); err != nil {
			log.Printf("service: moderation notification %s: %v", doc.ID, err)
		}
	}

	if s.renderer != nil && doc.ModerationStatus == ModerationApproved {
		if ref, err := s.renderer.Render(ctx, doc); err != nil {
			log.Printf("service: render %s: %v", doc.ID, err)
		} else {
			log.Printf("service: rendered %s -> %s", doc.ID, ref)
		}
	}
}

// Bootstrap seeds the registry and availability matrix on an empty database
// so a fresh deployment is usable immediately.
func (s *Service) Bootstrap(ctx context.Context) error {
	count, err := s.store.GameSystemCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := store.Actor{ID: "usr-seed-admin", DisplayName: "Rook", Role: string(rbac.RoleAdmin)}
	if err := s.store.InsertActor(ctx, admin); err != nil {
		return err
	}

	seeds := []struct {
		system store.GameSystem
		types  []string
	}{
		{
			system: store.GameSystem{
				ID:      "sys-vtm",
				Name:    "Vampire: The Masquerade (5th Edition)",
				Status:  SystemActive,
				Schemas: seedSchemas("clan", "generation"),
			},
			types: []string{TypeCharacter, TypeTown, TypeGroup, TypeGeneric},
		},
		{
			system: store.GameSystem{
				ID:      "sys-dnd5e",
				Name:    "Dungeons & Dragons (5th Edition)",
				Status:  SystemActive,
				Schemas: seedSchemas("class", "level"),
			},
			types: []string{TypeCharacter, TypeTown, TypeOrganization, TypeDanger, TypeGeneric},
		},
		{
			system: store.GameSystem{
				ID:      "sys-cofc",
				Name:    "Call of Cthulhu (7th Edition)",
				Status:  SystemBeta,
				Schemas: seedSchemas("occupation", "sanity"),
			},
			types: []string{TypeCharacter, TypeGeneric},
		},
	}

	for _, seed := range seeds {
		inserted, err := s.store.InsertGameSystem(ctx, seed.system)
		if err != nil {
			return err
		}
		if !inserted {
			continue
		}
		if err := s.Matrix.InitializeSystem(ctx, seed.system.ID); err != nil {
			return err
		}
		for _, documentType := range seed.types {
			if _, err := s.Matrix.Toggle(ctx, documentType, seed.system.ID, true); err != nil {
				return err
			}
		}
		log.Printf("bootstrap: seeded %s with %d enabled types", seed.system.ID, len(seed.types))
	}
	return nil
}

func seedSchemas(fields ...string) map[string]store.TypeSchema {
	schemaFields := make([]store.SchemaField, 0, len(fields)+1)
	schemaFields = append(schemaFields, store.SchemaField{Name: "name", Kind: "string", Required: true})
	for _, field := range fields {
		schemaFields = append(schemaFields, store.SchemaField{Name: field, Kind: "string"})
	}
	return map[string]store.TypeSchema{
		TypeCharacter: {Fields: schemaFields},
	}
}

// RevisionHistory lists a document's payload revisions for its owner or a
// moderator.
func (s *Service) RevisionHistory(ctx context.Context, documentID, requesterID string, limit int) ([]revisions.Revision, error) {
	if s.browser == nil {
		return nil, unavailableError("REVISIONS_UNCONFIGURED", "revision history is not configured", "")
	}
	if err := s.requireOwnerOrModerator(ctx, documentID, requesterID); err != nil {
		return nil, err
	}
	return s.browser.History(documentID, limit)
}

// RevisionPayload returns the payload as of one revision.
func (s *Service) RevisionPayload(ctx context.Context, documentID, hash, requesterID string) ([]byte, error) {
	if s.browser == nil {
		return nil, unavailableError("REVISIONS_UNCONFIGURED", "revision history is not configured", "")
	}
	if err := s.requireOwnerOrModerator(ctx, documentID, requesterID); err != nil {
		return nil, err
	}
	return s.browser.PayloadAt(documentID, hash)
}

func (s *Service) requireOwnerOrModerator(ctx context.Context, documentID, requesterID string) error {
	doc, err := s.Documents.get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != nil && *doc.OwnerID == requesterID {
		return nil
	}
	return s.RequireRole(ctx, requesterID, rbac.ActionModerate)
}

// ExportDocument renders a document on demand for its owner or a moderator.
func (s *Service) ExportDocument(ctx context.Context, documentID, requesterID string) (string, error) {
	if s.renderer == nil {
		return "", unavailableError("RENDERER_UNCONFIGURED", "document export is not configured", "")
	}
	viewer := requesterID
	doc, err := s.Documents.Get(ctx, documentID, &viewer)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(ctx, doc)
}
