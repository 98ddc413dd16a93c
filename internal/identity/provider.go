// Package identity resolves actor IDs asserted by the upstream gateway into
// actors with roles. Authentication itself lives outside this service.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"codex/api/internal/app"
	"codex/api/internal/rbac"
	"codex/api/internal/store"
)

type actorStore interface {
	GetActor(ctx context.Context, id string) (store.Actor, error)
}

type cachedActor struct {
	actor     app.Actor
	expiresAt time.Time
}

// Provider resolves actors from the actors table with a short in-process
// cache; role changes propagate within the TTL.
type Provider struct {
	store actorStore
	ttl   time.Duration

	mu     sync.Mutex
	actors map[string]cachedActor
}

func NewProvider(actorStore actorStore, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Provider{
		store:  actorStore,
		ttl:    ttl,
		actors: make(map[string]cachedActor),
	}
}

func (p *Provider) ResolveActor(ctx context.Context, id string) (app.Actor, error) {
	if id == "" {
		return app.Actor{}, &app.DomainError{Kind: app.KindPermission, Code: "ACTOR_REQUIRED", Message: "request carries no actor identity"}
	}

	p.mu.Lock()
	cached, ok := p.actors[id]
	p.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.actor, nil
	}

	record, err := p.store.GetActor(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return app.Actor{}, &app.DomainError{Kind: app.KindNotFound, Code: "ACTOR_NOT_FOUND", Message: "actor " + id + " does not exist"}
	}
	if err != nil {
		return app.Actor{}, err
	}

	actor := app.Actor{
		ID:          record.ID,
		DisplayName: record.DisplayName,
		Role:        rbac.Normalize(record.Role),
	}
	p.mu.Lock()
	p.actors[id] = cachedActor{actor: actor, expiresAt: time.Now().Add(p.ttl)}
	p.mu.Unlock()
	return actor, nil
}

// Forget drops a cached actor, forcing the next resolve to hit the store.
func (p *Provider) Forget(id string) {
	p.mu.Lock()
	delete(p.actors, id)
	p.mu.Unlock()
}
