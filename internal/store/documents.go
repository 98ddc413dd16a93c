package store

import (
	"context"
	"database/sql"
	"fmt"
)

const documentColumns = `
	id, doc_type, title, game_system_id, owner_id, payload, status, visibility,
	admin_only, moderation_status, featured, featured_at, featured_by,
	moderated_at, moderated_by, rejection_reason, claim_key_hash, created_at, updated_at
`

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var item Document
	err := row.Scan(
		&item.ID,
		&item.Type,
		&item.Title,
		&item.GameSystemID,
		&item.OwnerID,
		&item.Payload,
		&item.Status,
		&item.Visibility,
		&item.AdminOnly,
		&item.ModerationStatus,
		&item.Featured,
		&item.FeaturedAt,
		&item.FeaturedBy,
		&item.ModeratedAt,
		&item.ModeratedBy,
		&item.RejectionReason,
		&item.ClaimKeyHash,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	return scanDocument(row)
}

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) error {
	payload := item.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, doc_type, title, game_system_id, owner_id, payload, status, visibility, admin_only, moderation_status, claim_key_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, item.ID, item.Type, item.Title, item.GameSystemID, item.OwnerID, []byte(payload), item.Status, item.Visibility, item.AdminOnly, item.ModerationStatus, item.ClaimKeyHash)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateDocumentContent(ctx context.Context, id, title string, payload []byte) (bool, error) {
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET title=$2, payload=$3, updated_at=NOW()
		WHERE id=$1 AND status NOT IN ('DELETED')
	`, id, title, payload)
	if err != nil {
		return false, fmt.Errorf("update document content: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update document content: %w", err)
	}
	return affected > 0, nil
}

// ClaimDocument transfers an anonymous document to the given owner and lifts
// the admin-only restriction. The claim key hash is cleared so the key is
// single-use.
func (s *PostgresStore) ClaimDocument(ctx context.Context, id, ownerID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET owner_id=$2, admin_only=FALSE, claim_key_hash='', updated_at=NOW()
		WHERE id=$1
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("claim document: %w", err)
	}
	return nil
}

// ListVisibleDocuments returns the documents a viewer may see: their own plus
// all PUBLIC, non-admin-only, non-deleted documents. A nil viewer sees only
// the public set.
func (s *PostgresStore) ListVisibleDocuments(ctx context.Context, viewerID *string, filters DocumentFilters) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE status NOT IN ('DELETED')
		  AND (
			(visibility='PUBLIC' AND NOT admin_only AND status='ACTIVE')
			OR ($1::text IS NOT NULL AND owner_id=$1)
		  )`
	args := []any{viewerID}
	if filters.GameSystemID != "" {
		args = append(args, filters.GameSystemID)
		query += fmt.Sprintf(" AND game_system_id=$%d", len(args))
	}
	if filters.DocumentType != "" {
		args = append(args, filters.DocumentType)
		query += fmt.Sprintf(" AND doc_type=$%d", len(args))
	}
	if filters.OwnerID != "" {
		args = append(args, filters.OwnerID)
		query += fmt.Sprintf(" AND owner_id=$%d", len(args))
	}
	query += " ORDER BY updated_at DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return s.queryDocuments(ctx, query, args...)
}

func (s *PostgresStore) ListFeaturedDocuments(ctx context.Context, gameSystemID, documentType string) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE featured AND status='ACTIVE' AND game_system_id=$1`
	args := []any{gameSystemID}
	if documentType != "" {
		args = append(args, documentType)
		query += fmt.Sprintf(" AND doc_type=$%d", len(args))
	}
	query += " ORDER BY featured_at DESC"
	return s.queryDocuments(ctx, query, args...)
}

// ListPendingModeration is ordered oldest-first so early submissions are
// never starved by newer arrivals.
func (s *PostgresStore) ListPendingModeration(ctx context.Context) ([]Document, error) {
	return s.queryDocuments(ctx, `SELECT `+documentColumns+`
		FROM documents
		WHERE moderation_status IN ('PENDING', 'FLAGGED') AND visibility='PUBLIC' AND status='ACTIVE'
		ORDER BY created_at ASC`)
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		item, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

// GovernanceUpdate is one atomic document-state change plus its audit entry.
// Empty string fields leave the corresponding column untouched.
type GovernanceUpdate struct {
	DocumentID string
	Action     string
	ActorID    string
	Reason     string

	NewModerationStatus string
	NewVisibility       string
	NewLifecycleStatus  string
	SetFeatured         *bool
	StampModeration     bool
	ClearModeration     bool
	RejectionReason     string
}

// ApplyGovernance reads the document, updates it, and appends the moderation
// log entry inside a single transaction. The entry's before/after statuses
// come from the same transactional read, which is what keeps the per-document
// log monotonic.
func (s *PostgresStore) ApplyGovernance(ctx context.Context, update GovernanceUpdate) (Document, ModerationLogEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, ModerationLogEntry{}, fmt.Errorf("begin governance tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1 FOR UPDATE`, update.DocumentID)
	current, err := scanDocument(row)
	if err != nil {
		return Document{}, ModerationLogEntry{}, err
	}

	next := current
	if update.NewModerationStatus != "" {
		next.ModerationStatus = update.NewModerationStatus
	}
	if update.NewVisibility != "" {
		next.Visibility = update.NewVisibility
	}
	if update.NewLifecycleStatus != "" {
		next.Status = update.NewLifecycleStatus
	}
	if update.SetFeatured != nil {
		next.Featured = *update.SetFeatured
		if next.Featured {
			next.FeaturedBy = update.ActorID
		} else {
			next.FeaturedBy = ""
		}
	}
	if update.RejectionReason != "" {
		next.RejectionReason = update.RejectionReason
	} else if update.ClearModeration || (update.NewModerationStatus != "" && update.NewModerationStatus != "REJECTED") {
		// A rejection reason only describes a standing rejection. Leaving it
		// on a row that was later approved or sent back to PENDING would
		// misreport the document's state.
		next.RejectionReason = ""
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents
		SET moderation_status=$2,
			visibility=$3,
			status=$4,
			featured=$5,
			featured_at=CASE
				WHEN $5 AND NOT featured THEN NOW()
				WHEN NOT $5 THEN NULL
				ELSE featured_at
			END,
			featured_by=$6,
			moderated_at=CASE WHEN $7 THEN NOW() WHEN $8 THEN NULL ELSE moderated_at END,
			moderated_by=CASE WHEN $7 THEN $9 WHEN $8 THEN '' ELSE moderated_by END,
			rejection_reason=$10,
			updated_at=NOW()
		WHERE id=$1
	`, update.DocumentID, next.ModerationStatus, next.Visibility, next.Status,
		next.Featured, next.FeaturedBy, update.StampModeration, update.ClearModeration,
		update.ActorID, next.RejectionReason)
	if err != nil {
		return Document{}, ModerationLogEntry{}, fmt.Errorf("apply governance update: %w", err)
	}

	entry := ModerationLogEntry{
		DocumentID:   update.DocumentID,
		ActorID:      update.ActorID,
		Action:       update.Action,
		StatusBefore: current.ModerationStatus,
		StatusAfter:  next.ModerationStatus,
		Reason:       update.Reason,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO moderation_log (document_id, actor_id, action, status_before, status_after, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, entry.DocumentID, entry.ActorID, entry.Action, entry.StatusBefore, entry.StatusAfter, entry.Reason).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return Document{}, ModerationLogEntry{}, fmt.Errorf("append moderation log: %w", err)
	}

	row = tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, update.DocumentID)
	updated, err := scanDocument(row)
	if err != nil {
		return Document{}, ModerationLogEntry{}, fmt.Errorf("reread document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Document{}, ModerationLogEntry{}, fmt.Errorf("commit governance tx: %w", err)
	}
	return updated, entry, nil
}

// SoftDeleteDocument marks a document DELETED. Rows are never removed.
func (s *PostgresStore) SoftDeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status='DELETED', visibility='PRIVATE', featured=FALSE, updated_at=NOW()
		WHERE id=$1 AND status <> 'DELETED'
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
