package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

func (s *PostgresStore) GetTypeAvailability(ctx context.Context, documentType, gameSystemID string) (TypeAvailability, error) {
	var item TypeAvailability
	var config []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT document_type, game_system_id, active, sort_order, config, created_at, updated_at
		FROM type_availability
		WHERE document_type=$1 AND game_system_id=$2
	`, documentType, gameSystemID).Scan(&item.DocumentType, &item.GameSystemID, &item.Active, &item.SortOrder, &config, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return TypeAvailability{}, err
	}
	if err := json.Unmarshal(config, &item.Config); err != nil {
		return TypeAvailability{}, fmt.Errorf("decode type config: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListTypeAvailability(ctx context.Context, gameSystemID string) ([]TypeAvailability, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_type, game_system_id, active, sort_order, config, created_at, updated_at
		FROM type_availability
		WHERE game_system_id=$1
		ORDER BY sort_order, document_type
	`, gameSystemID)
	if err != nil {
		return nil, fmt.Errorf("list type availability: %w", err)
	}
	defer rows.Close()

	items := make([]TypeAvailability, 0)
	for rows.Next() {
		var item TypeAvailability
		var config []byte
		if err := rows.Scan(&item.DocumentType, &item.GameSystemID, &item.Active, &item.SortOrder, &config, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan type availability: %w", err)
		}
		if err := json.Unmarshal(config, &item.Config); err != nil {
			return nil, fmt.Errorf("decode type config: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type availability: %w", err)
	}
	return items, nil
}

// UpsertTypeAvailability creates the row on first toggle, otherwise flips the
// active flag. Configuration is only written on insert; toggling never
// clobbers an administrator's edits.
func (s *PostgresStore) UpsertTypeAvailability(ctx context.Context, item TypeAvailability) error {
	config, err := json.Marshal(item.Config)
	if err != nil {
		return fmt.Errorf("encode type config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO type_availability (document_type, game_system_id, active, sort_order, config)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_type, game_system_id)
		DO UPDATE SET active=EXCLUDED.active, updated_at=NOW()
	`, item.DocumentType, item.GameSystemID, item.Active, item.SortOrder, config)
	if err != nil {
		return fmt.Errorf("upsert type availability: %w", err)
	}
	return nil
}

type TypeOrder struct {
	DocumentType string
	SortOrder    int
}

// ReorderTypes applies the given display orders in one transaction. A missing
// row aborts the whole batch.
func (s *PostgresStore) ReorderTypes(ctx context.Context, gameSystemID string, orders []TypeOrder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, order := range orders {
		result, err := tx.ExecContext(ctx, `
			UPDATE type_availability
			SET sort_order=$3, updated_at=NOW()
			WHERE document_type=$1 AND game_system_id=$2
		`, order.DocumentType, gameSystemID, order.SortOrder)
		if err != nil {
			return fmt.Errorf("reorder %s/%s: %w", order.DocumentType, gameSystemID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("reorder %s/%s: %w", order.DocumentType, gameSystemID, err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder tx: %w", err)
	}
	return nil
}
