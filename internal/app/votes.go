package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"codex/api/internal/rbac"
	"codex/api/internal/store"
	"codex/api/internal/util"
)

const (
	minScore         = 1
	maxScore         = 5
	maxCommentLength = 1000

	// A document needs at least this many votes before it appears in
	// rankings; below that the averages are noise.
	rankMinVotes = 3
)

type voteStore interface {
	GetDocument(ctx context.Context, id string) (store.Document, error)
	UpsertVote(ctx context.Context, vote store.Vote) (store.Vote, error)
	ReviseVote(ctx context.Context, vote store.Vote) (store.Vote, bool, error)
	GetVote(ctx context.Context, documentID, voterID string) (store.Vote, error)
	DeleteVote(ctx context.Context, documentID, voterID string) (bool, error)
	VoteAggregate(ctx context.Context, documentID string) (store.VoteAggregate, error)
	RankDocuments(ctx context.Context, criterion, gameSystemID, documentType string, minVotes, limit int) ([]store.RankedDocument, error)
}

// Votes scores public documents on three criteria. One vote per voter per
// document; casting again replaces the previous scores.
type Votes struct {
	store    voteStore
	identity ActorResolver
}

func NewVotes(voteStore voteStore, identity ActorResolver) *Votes {
	return &Votes{store: voteStore, identity: identity}
}

type CastVoteInput struct {
	DocumentID string `json:"documentId"`
	VoterID    string `json:"voterId"`
	Quality    int    `json:"quality"`
	Utility    int    `json:"utility"`
	Fidelity   int    `json:"fidelity"`
	Comment    string `json:"comment"`
}

func validateScores(input CastVoteInput) []FieldViolation {
	violations := make([]FieldViolation, 0)
	for _, score := range []struct {
		field string
		value int
	}{
		{"quality", input.Quality},
		{"utility", input.Utility},
		{"fidelity", input.Fidelity},
	} {
		if score.value < minScore || score.value > maxScore {
			violations = append(violations, FieldViolation{Field: score.field, Message: "score must be between 1 and 5"})
		}
	}
	if utf8.RuneCountInString(input.Comment) > maxCommentLength {
		violations = append(violations, FieldViolation{Field: "comment", Message: "comment exceeds 1000 characters"})
	}
	return violations
}

// Cast records a vote, replacing any earlier vote by the same voter. Only
// public, active documents accept votes, and owners cannot vote on their own.
func (v *Votes) Cast(ctx context.Context, input CastVoteInput) (store.Vote, error) {
	if violations := validateScores(input); len(violations) > 0 {
		return store.Vote{}, validationError(violations...)
	}
	if _, err := v.identity.ResolveActor(ctx, input.VoterID); err != nil {
		return store.Vote{}, err
	}
	doc, err := v.votableDocument(ctx, input.DocumentID)
	if err != nil {
		return store.Vote{}, err
	}
	if doc.OwnerID != nil && *doc.OwnerID == input.VoterID {
		return store.Vote{}, permissionError("OWN_DOCUMENT", "owners cannot vote on their own documents")
	}

	return v.store.UpsertVote(ctx, store.Vote{
		ID:         util.NewID("vote"),
		DocumentID: input.DocumentID,
		VoterID:    input.VoterID,
		Quality:    input.Quality,
		Utility:    input.Utility,
		Fidelity:   input.Fidelity,
		Comment:    strings.TrimSpace(input.Comment),
	})
}

// Revise updates an existing vote only; revising a vote that was never cast
// is an error rather than a silent insert.
func (v *Votes) Revise(ctx context.Context, input CastVoteInput) (store.Vote, error) {
	if violations := validateScores(input); len(violations) > 0 {
		return store.Vote{}, validationError(violations...)
	}
	if _, err := v.votableDocument(ctx, input.DocumentID); err != nil {
		return store.Vote{}, err
	}

	vote, found, err := v.store.ReviseVote(ctx, store.Vote{
		DocumentID: input.DocumentID,
		VoterID:    input.VoterID,
		Quality:    input.Quality,
		Utility:    input.Utility,
		Fidelity:   input.Fidelity,
		Comment:    strings.TrimSpace(input.Comment),
	})
	if err != nil {
		return store.Vote{}, err
	}
	if !found {
		return store.Vote{}, notFoundError("VOTE_NOT_FOUND", "no vote by "+input.VoterID+" on document "+input.DocumentID)
	}
	return vote, nil
}

// Delete removes a vote. Voters retract their own; admins may remove any.
func (v *Votes) Delete(ctx context.Context, documentID, voterID, requesterID string) error {
	if requesterID != voterID {
		actor, err := v.identity.ResolveActor(ctx, requesterID)
		if err != nil {
			return err
		}
		if !rbac.Can(actor.Role, rbac.ActionAdmin) {
			return permissionError("NOT_VOTER", "only the voter or an admin may remove a vote")
		}
	}
	found, err := v.store.DeleteVote(ctx, documentID, voterID)
	if err != nil {
		return err
	}
	if !found {
		return notFoundError("VOTE_NOT_FOUND", "no vote by "+voterID+" on document "+documentID)
	}
	return nil
}

func (v *Votes) Get(ctx context.Context, documentID, voterID string) (store.Vote, error) {
	vote, err := v.store.GetVote(ctx, documentID, voterID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Vote{}, notFoundError("VOTE_NOT_FOUND", "no vote by "+voterID+" on document "+documentID)
	}
	return vote, err
}

// Aggregate returns per-criterion means plus the overall mean. A document
// with no votes aggregates to zeros, not an error.
func (v *Votes) Aggregate(ctx context.Context, documentID string) (store.VoteAggregate, error) {
	if _, err := v.store.GetDocument(ctx, documentID); errors.Is(err, sql.ErrNoRows) {
		return store.VoteAggregate{}, notFoundError("DOCUMENT_NOT_FOUND", "document "+documentID+" does not exist")
	} else if err != nil {
		return store.VoteAggregate{}, err
	}
	return v.store.VoteAggregate(ctx, documentID)
}

// Rank lists top documents by a criterion ("quality", "utility", "fidelity"
// or "overall"), restricted to documents with enough votes.
func (v *Votes) Rank(ctx context.Context, criterion, gameSystemID, documentType string, limit int) ([]store.RankedDocument, error) {
	switch criterion {
	case "quality", "utility", "fidelity", "overall":
	default:
		return nil, validationError(FieldViolation{Field: "criterion", Message: "must be quality, utility, fidelity or overall"})
	}
	if documentType != "" && !knownDocumentType(documentType) {
		return nil, validationError(FieldViolation{Field: "type", Message: "unknown document type " + documentType})
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return v.store.RankDocuments(ctx, criterion, gameSystemID, documentType, rankMinVotes, limit)
}

func (v *Votes) votableDocument(ctx context.Context, documentID string) (store.Document, error) {
	doc, err := v.store.GetDocument(ctx, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, notFoundError("DOCUMENT_NOT_FOUND", "document "+documentID+" does not exist")
	}
	if err != nil {
		return store.Document{}, err
	}
	if doc.Visibility != VisibilityPublic || doc.Status != StatusActive || doc.AdminOnly {
		return store.Document{}, validationError(FieldViolation{Field: "documentId", Message: "votes are only accepted on public documents"})
	}
	return doc, nil
}
