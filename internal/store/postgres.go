package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrImmutableLog is returned for any attempt to mutate the moderation log.
// The database triggers in migration 0002 are the backstop; the store refuses
// before a statement is ever issued.
var ErrImmutableLog = errors.New("moderation log is append-only")

// ErrDuplicateReport is returned when a reporter files a second report for
// the same document.
var ErrDuplicateReport = errors.New("duplicate report")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) GetActor(ctx context.Context, id string) (Actor, error) {
	var actor Actor
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, role, created_at
		FROM actors
		WHERE id=$1
	`, id).Scan(&actor.ID, &actor.DisplayName, &actor.Email, &actor.Role, &actor.CreatedAt)
	if err != nil {
		return Actor{}, err
	}
	return actor, nil
}

func (s *PostgresStore) InsertActor(ctx context.Context, actor Actor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actors (id, display_name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, actor.ID, actor.DisplayName, actor.Email, actor.Role)
	if err != nil {
		return fmt.Errorf("insert actor: %w", err)
	}
	return nil
}

func (s *PostgresStore) SummaryCounts(ctx context.Context) (SummaryCounts, error) {
	var counts SummaryCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status <> 'DELETED'),
			COUNT(*) FILTER (WHERE moderation_status='PENDING' AND visibility='PUBLIC' AND status='ACTIVE'),
			COUNT(*) FILTER (WHERE moderation_status='FLAGGED'),
			COUNT(*) FILTER (WHERE featured)
		FROM documents
	`).Scan(&counts.Documents, &counts.Pending, &counts.Flagged, &counts.Featured)
	if err != nil {
		return SummaryCounts{}, fmt.Errorf("summary counts: %w", err)
	}
	return counts, nil
}
