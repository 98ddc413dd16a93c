package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
)

// UpsertVote inserts a vote or, when the (document, voter) pair already
// exists, replaces the scores and comment. Only the latest vote stands.
func (s *PostgresStore) UpsertVote(ctx context.Context, vote Vote) (Vote, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO votes (id, document_id, voter_id, quality, utility, fidelity, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id, voter_id)
		DO UPDATE SET quality=EXCLUDED.quality, utility=EXCLUDED.utility,
			fidelity=EXCLUDED.fidelity, comment=EXCLUDED.comment, updated_at=NOW()
		RETURNING id, created_at, updated_at
	`, vote.ID, vote.DocumentID, vote.VoterID, vote.Quality, vote.Utility, vote.Fidelity, vote.Comment).
		Scan(&vote.ID, &vote.CreatedAt, &vote.UpdatedAt)
	if err != nil {
		return Vote{}, fmt.Errorf("upsert vote: %w", err)
	}
	return vote, nil
}

// ReviseVote updates an existing vote in place and reports whether a prior
// vote existed at all.
func (s *PostgresStore) ReviseVote(ctx context.Context, vote Vote) (Vote, bool, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE votes
		SET quality=$3, utility=$4, fidelity=$5, comment=$6, updated_at=NOW()
		WHERE document_id=$1 AND voter_id=$2
		RETURNING id, created_at, updated_at
	`, vote.DocumentID, vote.VoterID, vote.Quality, vote.Utility, vote.Fidelity, vote.Comment).
		Scan(&vote.ID, &vote.CreatedAt, &vote.UpdatedAt)
	if err == sql.ErrNoRows {
		return Vote{}, false, nil
	}
	if err != nil {
		return Vote{}, false, fmt.Errorf("revise vote: %w", err)
	}
	return vote, true, nil
}

func (s *PostgresStore) GetVote(ctx context.Context, documentID, voterID string) (Vote, error) {
	var vote Vote
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, voter_id, quality, utility, fidelity, comment, created_at, updated_at
		FROM votes
		WHERE document_id=$1 AND voter_id=$2
	`, documentID, voterID).Scan(&vote.ID, &vote.DocumentID, &vote.VoterID, &vote.Quality, &vote.Utility, &vote.Fidelity, &vote.Comment, &vote.CreatedAt, &vote.UpdatedAt)
	if err != nil {
		return Vote{}, err
	}
	return vote, nil
}

func (s *PostgresStore) DeleteVote(ctx context.Context, documentID, voterID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM votes WHERE document_id=$1 AND voter_id=$2
	`, documentID, voterID)
	if err != nil {
		return false, fmt.Errorf("delete vote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete vote: %w", err)
	}
	return affected > 0, nil
}

// VoteAggregate reduces a document's votes to per-criterion means. An
// unvoted document yields the zero aggregate rather than an error.
func (s *PostgresStore) VoteAggregate(ctx context.Context, documentID string) (VoteAggregate, error) {
	agg := VoteAggregate{DocumentID: documentID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(quality), 0),
			COALESCE(AVG(utility), 0),
			COALESCE(AVG(fidelity), 0)
		FROM votes
		WHERE document_id=$1
	`, documentID).Scan(&agg.Count, &agg.MeanQuality, &agg.MeanUtility, &agg.MeanFidelity)
	if err != nil {
		return VoteAggregate{}, fmt.Errorf("vote aggregate: %w", err)
	}
	if agg.Count == 0 {
		return agg, nil
	}
	agg.MeanQuality = round2(agg.MeanQuality)
	agg.MeanUtility = round2(agg.MeanUtility)
	agg.MeanFidelity = round2(agg.MeanFidelity)
	agg.MeanOverall = round2((agg.MeanQuality + agg.MeanUtility + agg.MeanFidelity) / 3)
	return agg, nil
}

var rankExpressions = map[string]string{
	"quality":  "v.quality",
	"utility":  "v.utility",
	"fidelity": "v.fidelity",
	"overall":  "(v.quality + v.utility + v.fidelity) / 3.0",
}

// RankDocuments orders public documents by the chosen criterion mean,
// optionally restricted to one system or document type. Documents with
// fewer than minVotes votes are excluded so a single enthusiastic voter
// cannot crown a leader.
func (s *PostgresStore) RankDocuments(ctx context.Context, criterion, gameSystemID, documentType string, minVotes, limit int) ([]RankedDocument, error) {
	expression, ok := rankExpressions[criterion]
	if !ok {
		return nil, fmt.Errorf("unknown rank criterion %q", criterion)
	}

	where := "d.visibility='PUBLIC' AND d.status='ACTIVE' AND NOT d.admin_only"
	args := []any{minVotes, limit}
	if gameSystemID != "" {
		args = append(args, gameSystemID)
		where += fmt.Sprintf(" AND d.game_system_id=$%d", len(args))
	}
	if documentType != "" {
		args = append(args, documentType)
		where += fmt.Sprintf(" AND d.doc_type=$%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT %s,
			COUNT(v.id),
			AVG(v.quality), AVG(v.utility), AVG(v.fidelity), AVG(%s)
		FROM documents d
		JOIN votes v ON v.document_id = d.id
		WHERE %s
		GROUP BY d.id
		HAVING COUNT(v.id) >= $1
		ORDER BY AVG(%s) DESC, COUNT(v.id) DESC, d.created_at DESC
		LIMIT $2
	`, prefixedDocumentColumns("d"), expression, where, expression)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rank documents: %w", err)
	}
	defer rows.Close()

	items := make([]RankedDocument, 0)
	for rows.Next() {
		var item RankedDocument
		var meanCriterion float64
		err := rows.Scan(
			&item.Document.ID,
			&item.Document.Type,
			&item.Document.Title,
			&item.Document.GameSystemID,
			&item.Document.OwnerID,
			&item.Document.Payload,
			&item.Document.Status,
			&item.Document.Visibility,
			&item.Document.AdminOnly,
			&item.Document.ModerationStatus,
			&item.Document.Featured,
			&item.Document.FeaturedAt,
			&item.Document.FeaturedBy,
			&item.Document.ModeratedAt,
			&item.Document.ModeratedBy,
			&item.Document.RejectionReason,
			&item.Document.ClaimKeyHash,
			&item.Document.CreatedAt,
			&item.Document.UpdatedAt,
			&item.Aggregate.Count,
			&item.Aggregate.MeanQuality,
			&item.Aggregate.MeanUtility,
			&item.Aggregate.MeanFidelity,
			&meanCriterion,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ranked document: %w", err)
		}
		item.Aggregate.DocumentID = item.Document.ID
		item.Aggregate.MeanQuality = round2(item.Aggregate.MeanQuality)
		item.Aggregate.MeanUtility = round2(item.Aggregate.MeanUtility)
		item.Aggregate.MeanFidelity = round2(item.Aggregate.MeanFidelity)
		item.Aggregate.MeanOverall = round2((item.Aggregate.MeanQuality + item.Aggregate.MeanUtility + item.Aggregate.MeanFidelity) / 3)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked documents: %w", err)
	}
	return items, nil
}

func prefixedDocumentColumns(alias string) string {
	return alias + `.id, ` + alias + `.doc_type, ` + alias + `.title, ` + alias + `.game_system_id, ` +
		alias + `.owner_id, ` + alias + `.payload, ` + alias + `.status, ` + alias + `.visibility, ` +
		alias + `.admin_only, ` + alias + `.moderation_status, ` + alias + `.featured, ` + alias + `.featured_at, ` +
		alias + `.featured_by, ` + alias + `.moderated_at, ` + alias + `.moderated_by, ` + alias + `.rejection_reason, ` +
		alias + `.claim_key_hash, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
