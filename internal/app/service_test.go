package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"codex/api/internal/rbac"
	"codex/api/internal/store"
)

type fakeStore struct {
	getDocumentFn           func(context.Context, string) (store.Document, error)
	insertDocumentFn        func(context.Context, store.Document) error
	updateDocumentContentFn func(context.Context, string, string, []byte) (bool, error)
	claimDocumentFn         func(context.Context, string, string) error
	listVisibleDocumentsFn  func(context.Context, *string, store.DocumentFilters) ([]store.Document, error)
	listFeaturedDocumentsFn func(context.Context, string, string) ([]store.Document, error)
	listPendingModerationFn func(context.Context) ([]store.Document, error)
	applyGovernanceFn       func(context.Context, store.GovernanceUpdate) (store.Document, store.ModerationLogEntry, error)
	softDeleteDocumentFn    func(context.Context, string) error

	upsertVoteFn    func(context.Context, store.Vote) (store.Vote, error)
	reviseVoteFn    func(context.Context, store.Vote) (store.Vote, bool, error)
	getVoteFn       func(context.Context, string, string) (store.Vote, error)
	deleteVoteFn    func(context.Context, string, string) (bool, error)
	voteAggregateFn func(context.Context, string) (store.VoteAggregate, error)
	rankDocumentsFn func(context.Context, string, string, string, int, int) ([]store.RankedDocument, error)

	recordReportFn      func(context.Context, string, string, string, int) (store.ModerationLogEntry, int, bool, error)
	listModerationLogFn func(context.Context, string) ([]store.ModerationLogEntry, error)
	reportCountFn       func(context.Context, string) (int, error)
	statsByActionFn     func(context.Context, time.Time) ([]store.ActionStat, error)
	statsByModeratorFn  func(context.Context, time.Time) ([]store.ModeratorStat, error)
	updateLogEntryFn    func(context.Context, int64, string) error
	deleteLogEntryFn    func(context.Context, int64) error

	getTypeAvailabilityFn    func(context.Context, string, string) (store.TypeAvailability, error)
	listTypeAvailabilityFn   func(context.Context, string) ([]store.TypeAvailability, error)
	upsertTypeAvailabilityFn func(context.Context, store.TypeAvailability) error
	reorderTypesFn           func(context.Context, string, []store.TypeOrder) error

	getGameSystemFn          func(context.Context, string) (store.GameSystem, error)
	listGameSystemsFn        func(context.Context, bool) ([]store.GameSystem, error)
	insertGameSystemFn       func(context.Context, store.GameSystem) (bool, error)
	updateGameSystemStatusFn func(context.Context, string, string, string) (bool, error)

	pingFn            func(context.Context) error
	getActorFn        func(context.Context, string) (store.Actor, error)
	insertActorFn     func(context.Context, store.Actor) error
	gameSystemCountFn func(context.Context) (int, error)
	summaryCountsFn   func(context.Context) (store.SummaryCounts, error)
}

func (f *fakeStore) GetDocument(ctx context.Context, id string) (store.Document, error) {
	if f.getDocumentFn != nil {
		return f.getDocumentFn(ctx, id)
	}
	return store.Document{}, sql.ErrNoRows
}
func (f *fakeStore) InsertDocument(ctx context.Context, item store.Document) error {
	if f.insertDocumentFn != nil {
		return f.insertDocumentFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) UpdateDocumentContent(ctx context.Context, id, title string, payload []byte) (bool, error) {
	if f.updateDocumentContentFn != nil {
		return f.updateDocumentContentFn(ctx, id, title, payload)
	}
	return true, nil
}
func (f *fakeStore) ClaimDocument(ctx context.Context, id, ownerID string) error {
	if f.claimDocumentFn != nil {
		return f.claimDocumentFn(ctx, id, ownerID)
	}
	return nil
}
func (f *fakeStore) ListVisibleDocuments(ctx context.Context, viewerID *string, filters store.DocumentFilters) ([]store.Document, error) {
	if f.listVisibleDocumentsFn != nil {
		return f.listVisibleDocumentsFn(ctx, viewerID, filters)
	}
	return nil, nil
}
func (f *fakeStore) ListFeaturedDocuments(ctx context.Context, gameSystemID, documentType string) ([]store.Document, error) {
	if f.listFeaturedDocumentsFn != nil {
		return f.listFeaturedDocumentsFn(ctx, gameSystemID, documentType)
	}
	return nil, nil
}
func (f *fakeStore) ListPendingModeration(ctx context.Context) ([]store.Document, error) {
	if f.listPendingModerationFn != nil {
		return f.listPendingModerationFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) ApplyGovernance(ctx context.Context, update store.GovernanceUpdate) (store.Document, store.ModerationLogEntry, error) {
	if f.applyGovernanceFn != nil {
		return f.applyGovernanceFn(ctx, update)
	}
	return store.Document{ID: update.DocumentID}, store.ModerationLogEntry{}, nil
}
func (f *fakeStore) SoftDeleteDocument(ctx context.Context, id string) error {
	if f.softDeleteDocumentFn != nil {
		return f.softDeleteDocumentFn(ctx, id)
	}
	return nil
}

func (f *fakeStore) UpsertVote(ctx context.Context, vote store.Vote) (store.Vote, error) {
	if f.upsertVoteFn != nil {
		return f.upsertVoteFn(ctx, vote)
	}
	return vote, nil
}
func (f *fakeStore) ReviseVote(ctx context.Context, vote store.Vote) (store.Vote, bool, error) {
	if f.reviseVoteFn != nil {
		return f.reviseVoteFn(ctx, vote)
	}
	return vote, true, nil
}
func (f *fakeStore) GetVote(ctx context.Context, documentID, voterID string) (store.Vote, error) {
	if f.getVoteFn != nil {
		return f.getVoteFn(ctx, documentID, voterID)
	}
	return store.Vote{}, sql.ErrNoRows
}
func (f *fakeStore) DeleteVote(ctx context.Context, documentID, voterID string) (bool, error) {
	if f.deleteVoteFn != nil {
		return f.deleteVoteFn(ctx, documentID, voterID)
	}
	return true, nil
}
func (f *fakeStore) VoteAggregate(ctx context.Context, documentID string) (store.VoteAggregate, error) {
	if f.voteAggregateFn != nil {
		return f.voteAggregateFn(ctx, documentID)
	}
	return store.VoteAggregate{DocumentID: documentID}, nil
}
func (f *fakeStore) RankDocuments(ctx context.Context, criterion, gameSystemID, documentType string, minVotes, limit int) ([]store.RankedDocument, error) {
	if f.rankDocumentsFn != nil {
		return f.rankDocumentsFn(ctx, criterion, gameSystemID, documentType, minVotes, limit)
	}
	return nil, nil
}

func (f *fakeStore) RecordReport(ctx context.Context, documentID, actorID, reason string, threshold int) (store.ModerationLogEntry, int, bool, error) {
	if f.recordReportFn != nil {
		return f.recordReportFn(ctx, documentID, actorID, reason, threshold)
	}
	return store.ModerationLogEntry{DocumentID: documentID, ActorID: actorID}, 1, false, nil
}
func (f *fakeStore) ListModerationLog(ctx context.Context, documentID string) ([]store.ModerationLogEntry, error) {
	if f.listModerationLogFn != nil {
		return f.listModerationLogFn(ctx, documentID)
	}
	return nil, nil
}
func (f *fakeStore) ReportCount(ctx context.Context, documentID string) (int, error) {
	if f.reportCountFn != nil {
		return f.reportCountFn(ctx, documentID)
	}
	return 0, nil
}
func (f *fakeStore) ModerationStatsByAction(ctx context.Context, since time.Time) ([]store.ActionStat, error) {
	if f.statsByActionFn != nil {
		return f.statsByActionFn(ctx, since)
	}
	return nil, nil
}
func (f *fakeStore) ModerationStatsByModerator(ctx context.Context, since time.Time) ([]store.ModeratorStat, error) {
	if f.statsByModeratorFn != nil {
		return f.statsByModeratorFn(ctx, since)
	}
	return nil, nil
}

func (f *fakeStore) UpdateModerationLogEntry(ctx context.Context, id int64, reason string) error {
	if f.updateLogEntryFn != nil {
		return f.updateLogEntryFn(ctx, id, reason)
	}
	return store.ErrImmutableLog
}
func (f *fakeStore) DeleteModerationLogEntry(ctx context.Context, id int64) error {
	if f.deleteLogEntryFn != nil {
		return f.deleteLogEntryFn(ctx, id)
	}
	return store.ErrImmutableLog
}

func (f *fakeStore) GetTypeAvailability(ctx context.Context, documentType, gameSystemID string) (store.TypeAvailability, error) {
	if f.getTypeAvailabilityFn != nil {
		return f.getTypeAvailabilityFn(ctx, documentType, gameSystemID)
	}
	return store.TypeAvailability{}, sql.ErrNoRows
}
func (f *fakeStore) ListTypeAvailability(ctx context.Context, gameSystemID string) ([]store.TypeAvailability, error) {
	if f.listTypeAvailabilityFn != nil {
		return f.listTypeAvailabilityFn(ctx, gameSystemID)
	}
	return nil, nil
}
func (f *fakeStore) UpsertTypeAvailability(ctx context.Context, item store.TypeAvailability) error {
	if f.upsertTypeAvailabilityFn != nil {
		return f.upsertTypeAvailabilityFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) ReorderTypes(ctx context.Context, gameSystemID string, orders []store.TypeOrder) error {
	if f.reorderTypesFn != nil {
		return f.reorderTypesFn(ctx, gameSystemID, orders)
	}
	return nil
}

func (f *fakeStore) GetGameSystem(ctx context.Context, id string) (store.GameSystem, error) {
	if f.getGameSystemFn != nil {
		return f.getGameSystemFn(ctx, id)
	}
	return store.GameSystem{}, sql.ErrNoRows
}
func (f *fakeStore) ListGameSystems(ctx context.Context, onlyActive bool) ([]store.GameSystem, error) {
	if f.listGameSystemsFn != nil {
		return f.listGameSystemsFn(ctx, onlyActive)
	}
	return nil, nil
}
func (f *fakeStore) InsertGameSystem(ctx context.Context, item store.GameSystem) (bool, error) {
	if f.insertGameSystemFn != nil {
		return f.insertGameSystemFn(ctx, item)
	}
	return true, nil
}
func (f *fakeStore) UpdateGameSystemStatus(ctx context.Context, id, status, maintenanceMessage string) (bool, error) {
	if f.updateGameSystemStatusFn != nil {
		return f.updateGameSystemStatusFn(ctx, id, status, maintenanceMessage)
	}
	return true, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}
func (f *fakeStore) GetActor(ctx context.Context, id string) (store.Actor, error) {
	if f.getActorFn != nil {
		return f.getActorFn(ctx, id)
	}
	return store.Actor{}, sql.ErrNoRows
}
func (f *fakeStore) InsertActor(ctx context.Context, actor store.Actor) error {
	if f.insertActorFn != nil {
		return f.insertActorFn(ctx, actor)
	}
	return nil
}
func (f *fakeStore) GameSystemCount(ctx context.Context) (int, error) {
	if f.gameSystemCountFn != nil {
		return f.gameSystemCountFn(ctx)
	}
	return 0, nil
}
func (f *fakeStore) SummaryCounts(ctx context.Context) (store.SummaryCounts, error) {
	if f.summaryCountsFn != nil {
		return f.summaryCountsFn(ctx)
	}
	return store.SummaryCounts{}, nil
}

// fakeIdentity resolves every actor as a member unless roles are set.
type fakeIdentity struct {
	roles     map[string]rbac.Role
	resolveFn func(context.Context, string) (Actor, error)
}

func (f *fakeIdentity) ResolveActor(ctx context.Context, id string) (Actor, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, id)
	}
	if id == "" {
		return Actor{}, &DomainError{Kind: KindPermission, Code: "ACTOR_REQUIRED", Message: "actor ID is required"}
	}
	role := rbac.RoleMember
	if f.roles != nil {
		if r, ok := f.roles[id]; ok {
			role = r
		}
	}
	return Actor{ID: id, DisplayName: id, Role: role}, nil
}

func strPtr(s string) *string { return &s }

// activeMatrix builds a matrix where the given system is ACTIVE and every
// document type is enabled.
func activeMatrix(fs *fakeStore, systemID string) *Matrix {
	fs.getGameSystemFn = func(_ context.Context, id string) (store.GameSystem, error) {
		if id != systemID {
			return store.GameSystem{}, sql.ErrNoRows
		}
		return store.GameSystem{ID: id, Name: "Test System", Status: SystemActive}, nil
	}
	fs.getTypeAvailabilityFn = func(_ context.Context, documentType, gameSystemID string) (store.TypeAvailability, error) {
		return store.TypeAvailability{
			DocumentType: documentType,
			GameSystemID: gameSystemID,
			Active:       true,
			Config:       defaultTypeConfig(documentType),
		}, nil
	}
	registry := NewRegistry(fs, nil)
	return NewMatrix(registry, fs, nil)
}

func wantDomainError(t *testing.T, err error, kind ErrorKind, code string) *DomainError {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Kind != kind {
		t.Errorf("expected kind %s, got %s", kind, domainErr.Kind)
	}
	if code != "" && domainErr.Code != code {
		t.Errorf("expected code %s, got %s", code, domainErr.Code)
	}
	return domainErr
}

func TestBootstrapSkipsPopulatedDatabase(t *testing.T) {
	inserted := 0
	fs := &fakeStore{
		gameSystemCountFn: func(context.Context) (int, error) { return 3, nil },
		insertGameSystemFn: func(context.Context, store.GameSystem) (bool, error) {
			inserted++
			return true, nil
		},
	}
	svc := &Service{store: fs, Matrix: activeMatrix(fs, "sys-test")}

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected no inserts on a populated database, got %d", inserted)
	}
}

func TestBootstrapSeedsEmptyDatabase(t *testing.T) {
	systems := make(map[string]store.GameSystem)
	rows := make(map[string]store.TypeAvailability)
	var seededAdmin *store.Actor

	fs := &fakeStore{
		gameSystemCountFn: func(context.Context) (int, error) { return 0, nil },
		insertActorFn: func(_ context.Context, actor store.Actor) error {
			seededAdmin = &actor
			return nil
		},
		insertGameSystemFn: func(_ context.Context, system store.GameSystem) (bool, error) {
			systems[system.ID] = system
			return true, nil
		},
		getGameSystemFn: func(_ context.Context, id string) (store.GameSystem, error) {
			system, ok := systems[id]
			if !ok {
				return store.GameSystem{}, sql.ErrNoRows
			}
			return system, nil
		},
		getTypeAvailabilityFn: func(_ context.Context, documentType, gameSystemID string) (store.TypeAvailability, error) {
			row, ok := rows[gameSystemID+"/"+documentType]
			if !ok {
				return store.TypeAvailability{}, sql.ErrNoRows
			}
			return row, nil
		},
		upsertTypeAvailabilityFn: func(_ context.Context, row store.TypeAvailability) error {
			rows[row.GameSystemID+"/"+row.DocumentType] = row
			return nil
		},
	}
	registry := NewRegistry(fs, nil)
	svc := &Service{store: fs, Matrix: NewMatrix(registry, fs, nil)}

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if seededAdmin == nil {
		t.Fatal("expected a seeded admin actor")
	}
	if seededAdmin.Role != string(rbac.RoleAdmin) {
		t.Errorf("expected admin role, got %s", seededAdmin.Role)
	}
	if len(systems) != 3 {
		t.Fatalf("expected 3 seeded systems, got %d", len(systems))
	}
	// Every seeded system gets a row per document type.
	for id := range systems {
		for _, documentType := range DocumentTypes {
			if _, ok := rows[id+"/"+documentType]; !ok {
				t.Errorf("system %s missing availability row for %s", id, documentType)
			}
		}
	}
	// Character documents are enabled everywhere.
	for id := range systems {
		if !rows[id+"/"+TypeCharacter].Active {
			t.Errorf("expected CHARACTER enabled for %s", id)
		}
	}
}

func TestRequireRole(t *testing.T) {
	identity := &fakeIdentity{roles: map[string]rbac.Role{
		"usr-admin": rbac.RoleAdmin,
		"usr-mod":   rbac.RoleModerator,
	}}
	svc := &Service{identity: identity}

	if err := svc.RequireRole(context.Background(), "usr-admin", rbac.ActionAdmin); err != nil {
		t.Errorf("admin should pass the admin gate: %v", err)
	}
	err := svc.RequireRole(context.Background(), "usr-mod", rbac.ActionAdmin)
	wantDomainError(t, err, KindPermission, "ROLE_REQUIRED")
	err = svc.RequireRole(context.Background(), "usr-member", rbac.ActionModerate)
	wantDomainError(t, err, KindPermission, "ROLE_REQUIRED")
}

func TestExportDocumentUnconfigured(t *testing.T) {
	svc := &Service{}
	_, err := svc.ExportDocument(context.Background(), "doc-1", "usr-1")
	wantDomainError(t, err, KindUnavailable, "RENDERER_UNCONFIGURED")
}

func TestDomainErrorHTTPStatus(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want int
	}{
		{KindValidation, 400},
		{KindNotFound, 404},
		{KindUnavailable, 422},
		{KindConflict, 409},
		{KindImmutable, 409},
		{KindPermission, 403},
		{ErrorKind("SOMETHING_ELSE"), 500},
	}
	for _, tc := range cases {
		err := &DomainError{Kind: tc.kind}
		if got := err.HTTPStatus(); got != tc.want {
			t.Errorf("kind %s: expected %d, got %d", tc.kind, tc.want, got)
		}
	}
}
