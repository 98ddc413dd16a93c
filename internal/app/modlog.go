package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"codex/api/internal/rbac"
	"codex/api/internal/store"
)

// reportFlagThreshold is the number of distinct reports that flips a
// PENDING or APPROVED document to FLAGGED.
const reportFlagThreshold = 3

type modlogStore interface {
	GetDocument(ctx context.Context, id string) (store.Document, error)
	RecordReport(ctx context.Context, documentID, actorID, reason string, threshold int) (store.ModerationLogEntry, int, bool, error)
	ListModerationLog(ctx context.Context, documentID string) ([]store.ModerationLogEntry, error)
	ReportCount(ctx context.Context, documentID string) (int, error)
	ModerationStatsByAction(ctx context.Context, since time.Time) ([]store.ActionStat, error)
	ModerationStatsByModerator(ctx context.Context, since time.Time) ([]store.ModeratorStat, error)
	UpdateModerationLogEntry(ctx context.Context, id int64, reason string) error
	DeleteModerationLogEntry(ctx context.Context, id int64) error
}

// ModerationLog is the append-only audit trail. Nothing in this service can
// change or remove an entry once written; the database enforces the same
// rule with triggers in case someone reaches past the service.
type ModerationLog struct {
	store    modlogStore
	identity ActorResolver
}

func NewModerationLog(modlogStore modlogStore, identity ActorResolver) *ModerationLog {
	return &ModerationLog{store: modlogStore, identity: identity}
}

type ReportResult struct {
	Entry       store.ModerationLogEntry `json:"entry"`
	ReportCount int                      `json:"reportCount"`
	Flagged     bool                     `json:"flagged"`
}

// Report files a community report. Each actor may report a document once;
// hitting the threshold flags the document for priority review.
func (m *ModerationLog) Report(ctx context.Context, documentID, actorID, reason string) (ReportResult, error) {
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < reasonFloor(ActionReport) {
		return ReportResult{}, validationError(FieldViolation{Field: "reason", Message: "report reason must be at least 20 characters"})
	}
	if _, err := m.identity.ResolveActor(ctx, actorID); err != nil {
		return ReportResult{}, err
	}

	doc, err := m.store.GetDocument(ctx, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return ReportResult{}, notFoundError("DOCUMENT_NOT_FOUND", "document "+documentID+" does not exist")
	}
	if err != nil {
		return ReportResult{}, err
	}
	if doc.Status == StatusDeleted {
		return ReportResult{}, notFoundError("DOCUMENT_NOT_FOUND", "document "+documentID+" does not exist")
	}

	entry, count, flagged, err := m.store.RecordReport(ctx, documentID, actorID, strings.TrimSpace(reason), reportFlagThreshold)
	if errors.Is(err, store.ErrDuplicateReport) {
		return ReportResult{}, conflictError("ALREADY_REPORTED", "actor "+actorID+" has already reported this document")
	}
	if err != nil {
		return ReportResult{}, err
	}
	return ReportResult{Entry: entry, ReportCount: count, Flagged: flagged}, nil
}

// History returns a document's full audit trail, newest first. Moderators
// only; the trail includes reporter identities.
func (m *ModerationLog) History(ctx context.Context, documentID, requesterID string) ([]store.ModerationLogEntry, error) {
	if err := m.requireModerator(ctx, requesterID); err != nil {
		return nil, err
	}
	if _, err := m.store.GetDocument(ctx, documentID); errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("DOCUMENT_NOT_FOUND", "document "+documentID+" does not exist")
	} else if err != nil {
		return nil, err
	}
	return m.store.ListModerationLog(ctx, documentID)
}

func (m *ModerationLog) ReportCount(ctx context.Context, documentID string) (int, error) {
	return m.store.ReportCount(ctx, documentID)
}

// StatsByAction aggregates log entries per action over a trailing window.
func (m *ModerationLog) StatsByAction(ctx context.Context, requesterID string, window time.Duration) ([]store.ActionStat, error) {
	if err := m.requireModerator(ctx, requesterID); err != nil {
		return nil, err
	}
	return m.store.ModerationStatsByAction(ctx, statsSince(window))
}

// StatsByModerator aggregates moderator activity (reports excluded) over a
// trailing window.
func (m *ModerationLog) StatsByModerator(ctx context.Context, requesterID string, window time.Duration) ([]store.ModeratorStat, error) {
	if err := m.requireModerator(ctx, requesterID); err != nil {
		return nil, err
	}
	return m.store.ModerationStatsByModerator(ctx, statsSince(window))
}

// UpdateEntry always fails: the log is append-only. The store refuses before
// SQL; the database trigger refuses anything that gets past it.
func (m *ModerationLog) UpdateEntry(ctx context.Context, entryID int64, reason string) error {
	if err := m.store.UpdateModerationLogEntry(ctx, entryID, reason); errors.Is(err, store.ErrImmutableLog) {
		return immutableError("moderation log entries cannot be modified")
	} else if err != nil {
		return err
	}
	return immutableError("moderation log entries cannot be modified")
}

// DeleteEntry always fails: the log is append-only.
func (m *ModerationLog) DeleteEntry(ctx context.Context, entryID int64) error {
	if err := m.store.DeleteModerationLogEntry(ctx, entryID); errors.Is(err, store.ErrImmutableLog) {
		return immutableError("moderation log entries cannot be deleted")
	} else if err != nil {
		return err
	}
	return immutableError("moderation log entries cannot be deleted")
}

func (m *ModerationLog) requireModerator(ctx context.Context, actorID string) error {
	actor, err := m.identity.ResolveActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !rbac.Can(actor.Role, rbac.ActionModerate) {
		return permissionError("ROLE_REQUIRED", "actor "+actorID+" may not view moderation data")
	}
	return nil
}

func statsSince(window time.Duration) time.Time {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return time.Now().UTC().Add(-window)
}
