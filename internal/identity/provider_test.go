package identity

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"codex/api/internal/app"
	"codex/api/internal/rbac"
	"codex/api/internal/store"
)

type fakeActorStore struct {
	actors map[string]store.Actor
	calls  int
}

func (f *fakeActorStore) GetActor(ctx context.Context, id string) (store.Actor, error) {
	f.calls++
	actor, ok := f.actors[id]
	if !ok {
		return store.Actor{}, sql.ErrNoRows
	}
	return actor, nil
}

func TestResolveActor(t *testing.T) {
	fs := &fakeActorStore{actors: map[string]store.Actor{
		"usr-1": {ID: "usr-1", DisplayName: "Marisha", Role: "moderator"},
		"usr-2": {ID: "usr-2", DisplayName: "Quinn", Role: "made-up-role"},
	}}
	provider := NewProvider(fs, time.Minute)
	ctx := context.Background()

	actor, err := provider.ResolveActor(ctx, "usr-1")
	if err != nil {
		t.Fatalf("ResolveActor() error = %v", err)
	}
	if actor.Role != rbac.RoleModerator {
		t.Fatalf("role = %q, want moderator", actor.Role)
	}

	// Unknown roles fall back to member instead of failing.
	actor, err = provider.ResolveActor(ctx, "usr-2")
	if err != nil {
		t.Fatalf("ResolveActor() error = %v", err)
	}
	if actor.Role != rbac.RoleMember {
		t.Fatalf("role = %q, want member", actor.Role)
	}
}

func TestResolveActorNotFound(t *testing.T) {
	provider := NewProvider(&fakeActorStore{actors: map[string]store.Actor{}}, time.Minute)

	_, err := provider.ResolveActor(context.Background(), "usr-missing")
	var domainErr *app.DomainError
	if !errors.As(err, &domainErr) || domainErr.Kind != app.KindNotFound {
		t.Fatalf("err = %v, want NOT_FOUND domain error", err)
	}

	_, err = provider.ResolveActor(context.Background(), "")
	if !errors.As(err, &domainErr) || domainErr.Kind != app.KindPermission {
		t.Fatalf("err = %v, want PERMISSION domain error", err)
	}
}

func TestResolveActorCaches(t *testing.T) {
	fs := &fakeActorStore{actors: map[string]store.Actor{
		"usr-1": {ID: "usr-1", DisplayName: "Marisha", Role: "member"},
	}}
	provider := NewProvider(fs, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := provider.ResolveActor(ctx, "usr-1"); err != nil {
			t.Fatalf("ResolveActor() error = %v", err)
		}
	}
	if fs.calls != 1 {
		t.Fatalf("store calls = %d, want 1", fs.calls)
	}

	provider.Forget("usr-1")
	if _, err := provider.ResolveActor(ctx, "usr-1"); err != nil {
		t.Fatalf("ResolveActor() error = %v", err)
	}
	if fs.calls != 2 {
		t.Fatalf("store calls = %d, want 2", fs.calls)
	}
}
