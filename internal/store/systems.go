package store

import (
	"context"
	"encoding/json"
	"fmt"
)

func (s *PostgresStore) GetGameSystem(ctx context.Context, id string) (GameSystem, error) {
	var item GameSystem
	var schemas []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, maintenance_message, sort_order, schemas, created_at, updated_at
		FROM game_systems
		WHERE id=$1
	`, id).Scan(&item.ID, &item.Name, &item.Status, &item.MaintenanceMessage, &item.SortOrder, &schemas, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return GameSystem{}, err
	}
	if err := json.Unmarshal(schemas, &item.Schemas); err != nil {
		return GameSystem{}, fmt.Errorf("decode schemas for %s: %w", id, err)
	}
	return item, nil
}

func (s *PostgresStore) ListGameSystems(ctx context.Context, onlyActive bool) ([]GameSystem, error) {
	query := `
		SELECT id, name, status, maintenance_message, sort_order, schemas, created_at, updated_at
		FROM game_systems
	`
	if onlyActive {
		query += ` WHERE status='ACTIVE'`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list game systems: %w", err)
	}
	defer rows.Close()

	items := make([]GameSystem, 0)
	for rows.Next() {
		var item GameSystem
		var schemas []byte
		if err := rows.Scan(&item.ID, &item.Name, &item.Status, &item.MaintenanceMessage, &item.SortOrder, &schemas, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan game system: %w", err)
		}
		if err := json.Unmarshal(schemas, &item.Schemas); err != nil {
			return nil, fmt.Errorf("decode schemas for %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game systems: %w", err)
	}
	return items, nil
}

// InsertGameSystem registers a system, reporting false when the ID was
// already taken.
func (s *PostgresStore) InsertGameSystem(ctx context.Context, item GameSystem) (bool, error) {
	schemas, err := json.Marshal(item.Schemas)
	if err != nil {
		return false, fmt.Errorf("encode schemas: %w", err)
	}
	if item.Schemas == nil {
		schemas = []byte(`{}`)
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO game_systems (id, name, status, maintenance_message, sort_order, schemas)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Name, item.Status, item.MaintenanceMessage, item.SortOrder, schemas)
	if err != nil {
		return false, fmt.Errorf("insert game system: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert game system: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) UpdateGameSystemStatus(ctx context.Context, id, status, maintenanceMessage string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE game_systems
		SET status=$2, maintenance_message=$3, updated_at=NOW()
		WHERE id=$1
	`, id, status, maintenanceMessage)
	if err != nil {
		return false, fmt.Errorf("update game system status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update game system status: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) GameSystemCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_systems`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count game systems: %w", err)
	}
	return count, nil
}
