package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"unicode/utf8"

	"codex/api/internal/rbac"
	"codex/api/internal/store"
	"codex/api/internal/util"

	"golang.org/x/crypto/bcrypt"
)

const (
	StatusDraft    = "DRAFT"
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
	StatusDeleted  = "DELETED"

	VisibilityPrivate = "PRIVATE"
	VisibilityPublic  = "PUBLIC"

	ModerationPending  = "PENDING"
	ModerationApproved = "APPROVED"
	ModerationRejected = "REJECTED"
	ModerationFlagged  = "FLAGGED"
)

// Moderation log actions.
const (
	ActionApproval         = "APPROVAL"
	ActionRejection        = "REJECTION"
	ActionReport           = "REPORT"
	ActionFeature          = "FEATURE"
	ActionUnfeature        = "UNFEATURE"
	ActionArchive          = "ARCHIVE"
	ActionRestore          = "RESTORE"
	ActionVisibilityChange = "VISIBILITY_CHANGE"
)

const maxTitleLength = 200

type documentStore interface {
	GetDocument(ctx context.Context, id string) (store.Document, error)
	InsertDocument(ctx context.Context, item store.Document) error
	UpdateDocumentContent(ctx context.Context, id, title string, payload []byte) (bool, error)
	ClaimDocument(ctx context.Context, id, ownerID string) error
	ListVisibleDocuments(ctx context.Context, viewerID *string, filters store.DocumentFilters) ([]store.Document, error)
	ListFeaturedDocuments(ctx context.Context, gameSystemID, documentType string) ([]store.Document, error)
	ListPendingModeration(ctx context.Context) ([]store.Document, error)
	ApplyGovernance(ctx context.Context, update store.GovernanceUpdate) (store.Document, store.ModerationLogEntry, error)
	SoftDeleteDocument(ctx context.Context, id string) error
}

// RevisionRecorder keeps per-document payload history. Optional; a nil
// recorder means no history is kept.
type RevisionRecorder interface {
	EnsureRepo(documentID string, payload []byte, author string) error
	Commit(documentID string, payload []byte, author, message string) error
}

// Documents is the document lifecycle and moderation state machine. It holds
// the availability matrix; creation never bypasses the gate.
type Documents struct {
	store     documentStore
	matrix    *Matrix
	identity  ActorResolver
	revisions RevisionRecorder
}

func NewDocuments(documentStore documentStore, matrix *Matrix, identity ActorResolver, revisions RevisionRecorder) *Documents {
	return &Documents{store: documentStore, matrix: matrix, identity: identity, revisions: revisions}
}

type CreateDocumentInput struct {
	Type         string          `json:"type"`
	Title        string          `json:"title"`
	GameSystemID string          `json:"gameSystemId"`
	OwnerID      string          `json:"ownerId"`
	Payload      json.RawMessage `json:"payload"`
	Draft        bool            `json:"draft"`
}

func (d *Documents) validateCreateInput(input CreateDocumentInput, config store.TypeConfig) []FieldViolation {
	violations := make([]FieldViolation, 0)
	if !knownDocumentType(input.Type) {
		violations = append(violations, FieldViolation{Field: "type", Message: "unknown document type " + input.Type})
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		violations = append(violations, FieldViolation{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(title) > maxTitleLength {
		violations = append(violations, FieldViolation{Field: "title", Message: "title exceeds 200 characters"})
	}

	if len(config.RequiredFields) > 0 {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(input.Payload, &payload); err != nil {
			violations = append(violations, FieldViolation{Field: "payload", Message: "payload must be a JSON object"})
		} else {
			for _, field := range config.RequiredFields {
				if _, ok := payload[field]; !ok {
					violations = append(violations, FieldViolation{Field: "payload." + field, Message: "required by document type configuration"})
				}
			}
		}
	}
	return violations
}

// Create persists a document for an authenticated owner. The availability
// matrix is consulted first; an unavailable pair fails with the matrix's own
// reason code.
func (d *Documents) Create(ctx context.Context, input CreateDocumentInput) (store.Document, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return store.Document{}, validationError(FieldViolation{Field: "ownerId", Message: "owner is required; use the anonymous path for quick mode"})
	}
	if _, err := d.identity.ResolveActor(ctx, input.OwnerID); err != nil {
		return store.Document{}, err
	}
	return d.create(ctx, input, &input.OwnerID, false, "")
}

// CreateAnonymous persists a quick-mode document: no owner, admin-only, and
// a one-time claim key whose bcrypt hash is the only copy we keep.
func (d *Documents) CreateAnonymous(ctx context.Context, input CreateDocumentInput) (store.Document, string, error) {
	claimKey := util.NewID("claim")
	hash, err := bcrypt.GenerateFromPassword([]byte(claimKey), bcrypt.DefaultCost)
	if err != nil {
		return store.Document{}, "", err
	}
	doc, err := d.create(ctx, input, nil, true, string(hash))
	if err != nil {
		return store.Document{}, "", err
	}
	return doc, claimKey, nil
}

func (d *Documents) create(ctx context.Context, input CreateDocumentInput, ownerID *string, adminOnly bool, claimKeyHash string) (store.Document, error) {
	availability, err := d.matrix.IsAvailable(ctx, input.Type, input.GameSystemID)
	if err != nil {
		return store.Document{}, err
	}
	if !availability.Available {
		return store.Document{}, unavailableError(availability.Reason, "document creation is not available for this type and system", availability.Detail)
	}

	if violations := d.validateCreateInput(input, availability.Config); len(violations) > 0 {
		return store.Document{}, validationError(violations...)
	}

	status := StatusActive
	if input.Draft {
		status = StatusDraft
	}
	doc := store.Document{
		ID:               util.NewID("doc"),
		Type:             input.Type,
		Title:            strings.TrimSpace(input.Title),
		GameSystemID:     input.GameSystemID,
		OwnerID:          ownerID,
		Payload:          input.Payload,
		Status:           status,
		Visibility:       VisibilityPrivate,
		AdminOnly:        adminOnly,
		ModerationStatus: ModerationPending,
		ClaimKeyHash:     claimKeyHash,
	}
	if err := d.store.InsertDocument(ctx, doc); err != nil {
		return store.Document{}, err
	}

	if d.revisions != nil {
		author := "anonymous"
		if ownerID != nil {
			author = *ownerID
		}
		if err := d.revisions.EnsureRepo(doc.ID, doc.Payload, author); err != nil {
			log.Printf("documents: revision repo for %s: %v", doc.ID, err)
		}
	}

	return d.store.GetDocument(ctx, doc.ID)
}

// Claim transfers an anonymous document to a real owner given the one-time
// claim key handed out at creation.
func (d *Documents) Claim(ctx context.Context, documentID, claimKey, ownerID string) (store.Document, error) {
	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if doc.OwnerID != nil || doc.ClaimKeyHash == "" {
		return store.Document{}, conflictError("ALREADY_CLAIMED", "document already has an owner")
	}
	if _, err := d.identity.ResolveActor(ctx, ownerID); err != nil {
		return store.Document{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doc.ClaimKeyHash), []byte(claimKey)); err != nil {
		return store.Document{}, permissionError("CLAIM_KEY_MISMATCH", "claim key does not match")
	}
	if err := d.store.ClaimDocument(ctx, documentID, ownerID); err != nil {
		return store.Document{}, err
	}
	return d.store.GetDocument(ctx, documentID)
}

// UpdateContent replaces title and payload. Owner only; every edit is
// committed to the revision history.
func (d *Documents) UpdateContent(ctx context.Context, documentID, requesterID, title string, payload json.RawMessage) (store.Document, error) {
	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if err := requireOwner(doc, requesterID); err != nil {
		return store.Document{}, err
	}
	if doc.Status == StatusDeleted || doc.Status == StatusArchived {
		return store.Document{}, conflictError("DOCUMENT_NOT_EDITABLE", "archived or deleted documents cannot be edited")
	}

	violations := make([]FieldViolation, 0)
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		violations = append(violations, FieldViolation{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(trimmed) > maxTitleLength {
		violations = append(violations, FieldViolation{Field: "title", Message: "title exceeds 200 characters"})
	}
	if len(payload) > 0 && !json.Valid(payload) {
		violations = append(violations, FieldViolation{Field: "payload", Message: "payload must be valid JSON"})
	}
	if len(violations) > 0 {
		return store.Document{}, validationError(violations...)
	}

	if _, err := d.store.UpdateDocumentContent(ctx, documentID, trimmed, payload); err != nil {
		return store.Document{}, err
	}

	if d.revisions != nil {
		if err := d.revisions.Commit(documentID, payload, requesterID, "Update "+trimmed); err != nil {
			log.Printf("documents: record revision for %s: %v", documentID, err)
		}
	}

	return d.store.GetDocument(ctx, documentID)
}

// Publish moves a draft into the active lifecycle; visibility stays PRIVATE
// until the owner shares it explicitly.
func (d *Documents) Publish(ctx context.Context, documentID, requesterID string) (store.Document, error) {
	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if err := requireOwner(doc, requesterID); err != nil {
		return store.Document{}, err
	}
	if doc.Status != StatusDraft {
		return store.Document{}, conflictError("NOT_A_DRAFT", "only drafts can be published")
	}

	updated, _, err := d.store.ApplyGovernance(ctx, store.GovernanceUpdate{
		DocumentID:         documentID,
		Action:             ActionVisibilityChange,
		ActorID:            requesterID,
		Reason:             "draft published",
		NewLifecycleStatus: StatusActive,
	})
	return updated, err
}

// ChangeVisibility toggles PRIVATE/PUBLIC. Going public resets moderation to
// PENDING so the document re-enters the review queue.
func (d *Documents) ChangeVisibility(ctx context.Context, documentID, newVisibility, requesterID string) (store.Document, error) {
	if newVisibility != VisibilityPrivate && newVisibility != VisibilityPublic {
		return store.Document{}, validationError(FieldViolation{Field: "visibility", Message: "must be PRIVATE or PUBLIC"})
	}

	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if err := requireOwner(doc, requesterID); err != nil {
		return store.Document{}, err
	}
	if doc.Status == StatusDraft && newVisibility == VisibilityPublic {
		return store.Document{}, validationError(FieldViolation{Field: "visibility", Message: "drafts cannot be public"})
	}
	if doc.Visibility == newVisibility {
		return doc, nil
	}

	update := store.GovernanceUpdate{
		DocumentID:    documentID,
		Action:        ActionVisibilityChange,
		ActorID:       requesterID,
		Reason:        "visibility set to " + newVisibility,
		NewVisibility: newVisibility,
	}
	if newVisibility == VisibilityPublic {
		// Re-entering the public pool always requires a fresh review.
		update.NewModerationStatus = ModerationPending
		update.ClearModeration = true
	}

	updated, _, err := d.store.ApplyGovernance(ctx, update)
	return updated, err
}

// Moderate approves or rejects a document. Rejection forces the document
// back to PRIVATE and records the reason. The document update and the log
// entry are one transaction.
func (d *Documents) Moderate(ctx context.Context, documentID, newStatus, moderatorID, reason string) (store.Document, error) {
	if newStatus != ModerationApproved && newStatus != ModerationRejected {
		return store.Document{}, validationError(FieldViolation{Field: "status", Message: "must be APPROVED or REJECTED"})
	}
	if err := d.requireRole(ctx, moderatorID, rbac.ActionModerate); err != nil {
		return store.Document{}, err
	}

	action := ActionApproval
	if newStatus == ModerationRejected {
		action = ActionRejection
		if utf8.RuneCountInString(strings.TrimSpace(reason)) < reasonFloor(ActionRejection) {
			return store.Document{}, validationError(FieldViolation{Field: "reason", Message: "rejection reason must be at least 20 characters"})
		}
	}

	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if doc.ModerationStatus == newStatus {
		return store.Document{}, conflictError("MODERATION_UNCHANGED", "document is already "+newStatus)
	}

	update := store.GovernanceUpdate{
		DocumentID:          documentID,
		Action:              action,
		ActorID:             moderatorID,
		Reason:              strings.TrimSpace(reason),
		NewModerationStatus: newStatus,
		StampModeration:     true,
	}
	if newStatus == ModerationRejected {
		update.NewVisibility = VisibilityPrivate
		update.RejectionReason = strings.TrimSpace(reason)
	}

	updated, _, err := d.store.ApplyGovernance(ctx, update)
	return updated, err
}

// Feature promotes an approved document; the justification becomes part of
// the audit trail.
func (d *Documents) Feature(ctx context.Context, documentID, moderatorID, justification string) (store.Document, error) {
	if err := d.requireRole(ctx, moderatorID, rbac.ActionFeature); err != nil {
		return store.Document{}, err
	}
	if utf8.RuneCountInString(strings.TrimSpace(justification)) < reasonFloor(ActionFeature) {
		return store.Document{}, validationError(FieldViolation{Field: "justification", Message: "feature justification must be at least 10 characters"})
	}

	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if doc.ModerationStatus != ModerationApproved {
		return store.Document{}, validationError(FieldViolation{Field: "moderationStatus", Message: "only approved documents can be featured"})
	}
	if doc.Featured {
		return store.Document{}, conflictError("ALREADY_FEATURED", "document is already featured")
	}

	featured := true
	updated, _, err := d.store.ApplyGovernance(ctx, store.GovernanceUpdate{
		DocumentID:  documentID,
		Action:      ActionFeature,
		ActorID:     moderatorID,
		Reason:      strings.TrimSpace(justification),
		SetFeatured: &featured,
	})
	return updated, err
}

func (d *Documents) Unfeature(ctx context.Context, documentID, moderatorID string) (store.Document, error) {
	if err := d.requireRole(ctx, moderatorID, rbac.ActionFeature); err != nil {
		return store.Document{}, err
	}
	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if !doc.Featured {
		return store.Document{}, conflictError("NOT_FEATURED", "document is not featured")
	}

	featured := false
	updated, _, err := d.store.ApplyGovernance(ctx, store.GovernanceUpdate{
		DocumentID:  documentID,
		Action:      ActionUnfeature,
		ActorID:     moderatorID,
		SetFeatured: &featured,
	})
	return updated, err
}

// Archive shelves a document. Owners archive their own; moderators may
// archive anything.
func (d *Documents) Archive(ctx context.Context, documentID, actorID string) (store.Document, error) {
	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if err := d.requireOwnerOrRole(ctx, doc, actorID, rbac.ActionModerate); err != nil {
		return store.Document{}, err
	}
	if doc.Status == StatusArchived {
		return store.Document{}, conflictError("ALREADY_ARCHIVED", "document is already archived")
	}

	updated, _, err := d.store.ApplyGovernance(ctx, store.GovernanceUpdate{
		DocumentID:         documentID,
		Action:             ActionArchive,
		ActorID:            actorID,
		NewLifecycleStatus: StatusArchived,
	})
	return updated, err
}

func (d *Documents) Restore(ctx context.Context, documentID, actorID string) (store.Document, error) {
	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if err := d.requireOwnerOrRole(ctx, doc, actorID, rbac.ActionModerate); err != nil {
		return store.Document{}, err
	}
	if doc.Status != StatusArchived {
		return store.Document{}, conflictError("NOT_ARCHIVED", "only archived documents can be restored")
	}

	updated, _, err := d.store.ApplyGovernance(ctx, store.GovernanceUpdate{
		DocumentID:         documentID,
		Action:             ActionRestore,
		ActorID:            actorID,
		NewLifecycleStatus: StatusActive,
	})
	return updated, err
}

// Delete soft-deletes; rows are kept for the audit trail.
func (d *Documents) Delete(ctx context.Context, documentID, actorID string) error {
	doc, err := d.get(ctx, documentID)
	if err != nil {
		return err
	}
	if err := d.requireOwnerOrRole(ctx, doc, actorID, rbac.ActionAdmin); err != nil {
		return err
	}
	if err := d.store.SoftDeleteDocument(ctx, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return conflictError("ALREADY_DELETED", "document is already deleted")
		}
		return err
	}
	return nil
}

// Get returns a document if the viewer may see it: owners always, everyone
// else only PUBLIC, non-admin-only, active documents.
func (d *Documents) Get(ctx context.Context, documentID string, viewerID *string) (store.Document, error) {
	doc, err := d.get(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if viewerID != nil && doc.OwnerID != nil && *doc.OwnerID == *viewerID {
		return doc, nil
	}
	if viewerID != nil {
		actor, err := d.identity.ResolveActor(ctx, *viewerID)
		if err == nil && rbac.Can(actor.Role, rbac.ActionModerate) {
			return doc, nil
		}
	}
	if doc.Visibility != VisibilityPublic || doc.AdminOnly || doc.Status != StatusActive {
		return store.Document{}, notFoundError("DOCUMENT_NOT_FOUND", "document "+documentID+" does not exist")
	}
	return doc, nil
}

func (d *Documents) FindVisibleTo(ctx context.Context, viewerID *string, filters store.DocumentFilters) ([]store.Document, error) {
	return d.store.ListVisibleDocuments(ctx, viewerID, filters)
}

func (d *Documents) FindFeatured(ctx context.Context, gameSystemID, documentType string) ([]store.Document, error) {
	return d.store.ListFeaturedDocuments(ctx, gameSystemID, documentType)
}

// FindPendingModeration is the review queue, oldest first.
func (d *Documents) FindPendingModeration(ctx context.Context, moderatorID string) ([]store.Document, error) {
	if err := d.requireRole(ctx, moderatorID, rbac.ActionModerate); err != nil {
		return nil, err
	}
	return d.store.ListPendingModeration(ctx)
}

func (d *Documents) get(ctx context.Context, documentID string) (store.Document, error) {
	doc, err := d.store.GetDocument(ctx, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, notFoundError("DOCUMENT_NOT_FOUND", "document "+documentID+" does not exist")
	}
	if err != nil {
		return store.Document{}, err
	}
	if doc.Status == StatusDeleted {
		return store.Document{}, notFoundError("DOCUMENT_NOT_FOUND", "document "+documentID+" does not exist")
	}
	return doc, nil
}

func (d *Documents) requireRole(ctx context.Context, actorID string, action rbac.Action) error {
	actor, err := d.identity.ResolveActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !rbac.Can(actor.Role, action) {
		return permissionError("ROLE_REQUIRED", "actor "+actorID+" may not perform this action")
	}
	return nil
}

func (d *Documents) requireOwnerOrRole(ctx context.Context, doc store.Document, actorID string, action rbac.Action) error {
	if doc.OwnerID != nil && *doc.OwnerID == actorID {
		return nil
	}
	return d.requireRole(ctx, actorID, action)
}

func requireOwner(doc store.Document, requesterID string) error {
	if doc.OwnerID == nil || *doc.OwnerID != requesterID {
		return permissionError("NOT_OWNER", "only the owner may do this")
	}
	return nil
}

// reasonFloor is the minimum justification length per log action.
func reasonFloor(action string) int {
	switch action {
	case ActionFeature, ActionUnfeature:
		return 10
	case ActionRejection, ActionReport:
		return 20
	default:
		return 0
	}
}
