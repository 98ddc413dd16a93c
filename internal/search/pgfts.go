package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS answers searches from the documents table's tsvector column when
// Meilisearch is unavailable.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := `d.fts @@ plainto_tsquery('english', $1)
		AND d.visibility = 'PUBLIC' AND d.status = 'ACTIVE' AND NOT d.admin_only`
	args := []any{q.Text}
	if q.GameSystemID != "" {
		args = append(args, q.GameSystemID)
		where += fmt.Sprintf(" AND d.game_system_id = $%d", len(args))
	}
	if q.DocumentType != "" {
		args = append(args, q.DocumentType)
		where += fmt.Sprintf(" AND d.doc_type = $%d", len(args))
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT d.id, d.title, d.doc_type, d.game_system_id,
			ts_headline('english', coalesce(d.payload::text, ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			ts_rank(d.fts, plainto_tsquery('english', $1)) AS rank,
			COUNT(*) OVER () AS total
		FROM documents d
		WHERE %s
		ORDER BY rank DESC, d.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	total := 0
	for rows.Next() {
		var result Result
		if err := rows.Scan(&result.ID, &result.Title, &result.DocumentType, &result.GameSystemID, &result.Snippet, &result.Rank, &total); err != nil {
			return nil, 0, fmt.Errorf("scan pgfts result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pgfts results: %w", err)
	}
	return results, total, nil
}
