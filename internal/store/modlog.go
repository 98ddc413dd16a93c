package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RecordReport appends a REPORT entry and, when the report count reaches the
// threshold while the document is PENDING or APPROVED, flips the document to
// FLAGGED in the same transaction. A second report from the same actor is
// rejected by the partial unique index.
func (s *PostgresStore) RecordReport(ctx context.Context, documentID, actorID, reason string, threshold int) (ModerationLogEntry, int, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModerationLogEntry{}, 0, false, fmt.Errorf("begin report tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT moderation_status FROM documents WHERE id=$1 FOR UPDATE`, documentID)
	var status string
	if err := row.Scan(&status); err != nil {
		return ModerationLogEntry{}, 0, false, err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM moderation_log WHERE document_id=$1 AND action='REPORT'
	`, documentID).Scan(&count); err != nil {
		return ModerationLogEntry{}, 0, false, fmt.Errorf("count reports: %w", err)
	}
	count++

	flagged := count >= threshold && (status == "PENDING" || status == "APPROVED")
	statusAfter := status
	if flagged {
		statusAfter = "FLAGGED"
	}

	entry := ModerationLogEntry{
		DocumentID:   documentID,
		ActorID:      actorID,
		Action:       "REPORT",
		StatusBefore: status,
		StatusAfter:  statusAfter,
		Reason:       reason,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO moderation_log (document_id, actor_id, action, status_before, status_after, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, entry.DocumentID, entry.ActorID, entry.Action, entry.StatusBefore, entry.StatusAfter, entry.Reason).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ModerationLogEntry{}, 0, false, ErrDuplicateReport
		}
		return ModerationLogEntry{}, 0, false, fmt.Errorf("append report: %w", err)
	}

	if flagged {
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents SET moderation_status='FLAGGED', updated_at=NOW() WHERE id=$1
		`, documentID); err != nil {
			return ModerationLogEntry{}, 0, false, fmt.Errorf("flag document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ModerationLogEntry{}, 0, false, fmt.Errorf("commit report tx: %w", err)
	}
	return entry, count, flagged, nil
}

func (s *PostgresStore) ListModerationLog(ctx context.Context, documentID string) ([]ModerationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.document_id, l.actor_id, COALESCE(a.display_name, ''), l.action, l.status_before, l.status_after, l.reason, l.created_at
		FROM moderation_log l
		LEFT JOIN actors a ON a.id = l.actor_id
		WHERE l.document_id=$1
		ORDER BY l.id DESC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list moderation log: %w", err)
	}
	defer rows.Close()

	items := make([]ModerationLogEntry, 0)
	for rows.Next() {
		var item ModerationLogEntry
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.ActorID, &item.ActorName, &item.Action, &item.StatusBefore, &item.StatusAfter, &item.Reason, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation log entry: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation log: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ReportCount(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM moderation_log WHERE document_id=$1 AND action='REPORT'
	`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ModerationStatsByAction(ctx context.Context, since time.Time) ([]ActionStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action, COUNT(*)
		FROM moderation_log
		WHERE created_at >= $1
		GROUP BY action
		ORDER BY COUNT(*) DESC, action
	`, since)
	if err != nil {
		return nil, fmt.Errorf("stats by action: %w", err)
	}
	defer rows.Close()

	items := make([]ActionStat, 0)
	for rows.Next() {
		var item ActionStat
		if err := rows.Scan(&item.Action, &item.Count); err != nil {
			return nil, fmt.Errorf("scan action stat: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action stats: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ModerationStatsByModerator(ctx context.Context, since time.Time) ([]ModeratorStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.actor_id, COALESCE(a.display_name, ''), COUNT(*)
		FROM moderation_log l
		LEFT JOIN actors a ON a.id = l.actor_id
		WHERE l.created_at >= $1 AND l.action <> 'REPORT'
		GROUP BY l.actor_id, a.display_name
		ORDER BY COUNT(*) DESC, l.actor_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("stats by moderator: %w", err)
	}
	defer rows.Close()

	items := make([]ModeratorStat, 0)
	for rows.Next() {
		var item ModeratorStat
		if err := rows.Scan(&item.ActorID, &item.ActorName, &item.Count); err != nil {
			return nil, fmt.Errorf("scan moderator stat: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderator stats: %w", err)
	}
	return items, nil
}

// UpdateModerationLogEntry exists to make the contract explicit: the log
// cannot be rewritten. It never issues SQL.
func (s *PostgresStore) UpdateModerationLogEntry(ctx context.Context, id int64, reason string) error {
	return ErrImmutableLog
}

// DeleteModerationLogEntry likewise always refuses.
func (s *PostgresStore) DeleteModerationLogEntry(ctx context.Context, id int64) error {
	return ErrImmutableLog
}
