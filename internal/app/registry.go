package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"codex/api/internal/store"
	"codex/api/internal/util"
)

const (
	SystemActive      = "ACTIVE"
	SystemMaintenance = "MAINTENANCE"
	SystemDeprecated  = "DEPRECATED"
	SystemBeta        = "BETA"
)

// AvailabilityCache is a bounded-TTL read cache in front of the registry and
// matrix tables. Both change rarely; staleness only delays a toggle's
// visibility by the TTL.
type AvailabilityCache interface {
	GetSystem(ctx context.Context, id string) (store.GameSystem, bool)
	SetSystem(ctx context.Context, system store.GameSystem)
	InvalidateSystem(ctx context.Context, id string)
	GetType(ctx context.Context, documentType, gameSystemID string) (store.TypeAvailability, bool)
	SetType(ctx context.Context, row store.TypeAvailability)
	InvalidateType(ctx context.Context, documentType, gameSystemID string)
}

type registryStore interface {
	GetGameSystem(ctx context.Context, id string) (store.GameSystem, error)
	ListGameSystems(ctx context.Context, onlyActive bool) ([]store.GameSystem, error)
	InsertGameSystem(ctx context.Context, item store.GameSystem) (bool, error)
	UpdateGameSystemStatus(ctx context.Context, id, status, maintenanceMessage string) (bool, error)
}

// Registry is the authoritative list of supported game systems.
type Registry struct {
	store registryStore
	cache AvailabilityCache
}

func NewRegistry(registryStore registryStore, cache AvailabilityCache) *Registry {
	return &Registry{store: registryStore, cache: cache}
}

func (r *Registry) Get(ctx context.Context, id string) (store.GameSystem, error) {
	if r.cache != nil {
		if system, ok := r.cache.GetSystem(ctx, id); ok {
			return system, nil
		}
	}
	system, err := r.store.GetGameSystem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.GameSystem{}, notFoundError("SYSTEM_NOT_FOUND", "game system "+id+" does not exist")
	}
	if err != nil {
		return store.GameSystem{}, err
	}
	if r.cache != nil {
		r.cache.SetSystem(ctx, system)
	}
	return system, nil
}

func (r *Registry) ListActive(ctx context.Context) ([]store.GameSystem, error) {
	return r.store.ListGameSystems(ctx, true)
}

// Register adds a new system to the registry. The ID is derived from the
// name when not supplied; a taken ID is a conflict, never an overwrite.
func (r *Registry) Register(ctx context.Context, system store.GameSystem) (store.GameSystem, error) {
	violations := make([]FieldViolation, 0)
	if strings.TrimSpace(system.Name) == "" {
		violations = append(violations, FieldViolation{Field: "name", Message: "name is required"})
	}
	switch system.Status {
	case "":
		system.Status = SystemBeta
	case SystemActive, SystemMaintenance, SystemDeprecated, SystemBeta:
	default:
		violations = append(violations, FieldViolation{Field: "status", Message: "unknown status " + system.Status})
	}
	if system.Status == SystemMaintenance && strings.TrimSpace(system.MaintenanceMessage) == "" {
		violations = append(violations, FieldViolation{Field: "maintenanceMessage", Message: "maintenance requires a message"})
	}
	if len(violations) > 0 {
		return store.GameSystem{}, validationError(violations...)
	}

	if system.ID == "" {
		system.ID = "sys-" + util.Slug(system.Name)
	}
	inserted, err := r.store.InsertGameSystem(ctx, system)
	if err != nil {
		return store.GameSystem{}, err
	}
	if !inserted {
		return store.GameSystem{}, conflictError("SYSTEM_EXISTS", "game system "+system.ID+" already exists")
	}
	return r.store.GetGameSystem(ctx, system.ID)
}

func (r *Registry) ListAll(ctx context.Context) ([]store.GameSystem, error) {
	return r.store.ListGameSystems(ctx, false)
}

// IsAvailable reports whether documents may currently target this system.
func (r *Registry) IsAvailable(ctx context.Context, id string) (bool, error) {
	system, err := r.Get(ctx, id)
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) && domainErr.Kind == KindNotFound {
			return false, nil
		}
		return false, err
	}
	return system.Status == SystemActive, nil
}

// SetMaintenance places a system in maintenance mode. The message is shown
// to users attempting to create documents and must not be empty.
func (r *Registry) SetMaintenance(ctx context.Context, id, message string) (store.GameSystem, error) {
	if strings.TrimSpace(message) == "" {
		return store.GameSystem{}, validationError(FieldViolation{
			Field:   "message",
			Message: "maintenance message is required",
		})
	}

	updated, err := r.store.UpdateGameSystemStatus(ctx, id, SystemMaintenance, strings.TrimSpace(message))
	if err != nil {
		return store.GameSystem{}, err
	}
	if !updated {
		return store.GameSystem{}, notFoundError("SYSTEM_NOT_FOUND", "game system "+id+" does not exist")
	}
	if r.cache != nil {
		r.cache.InvalidateSystem(ctx, id)
	}
	return r.store.GetGameSystem(ctx, id)
}

// ClearMaintenance returns a system to ACTIVE. Systems that are not in
// maintenance are left untouched; deprecation is not undone by accident.
func (r *Registry) ClearMaintenance(ctx context.Context, id string) (store.GameSystem, error) {
	system, err := r.store.GetGameSystem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.GameSystem{}, notFoundError("SYSTEM_NOT_FOUND", "game system "+id+" does not exist")
	}
	if err != nil {
		return store.GameSystem{}, err
	}
	if system.Status != SystemMaintenance {
		return system, nil
	}

	if _, err := r.store.UpdateGameSystemStatus(ctx, id, SystemActive, ""); err != nil {
		return store.GameSystem{}, err
	}
	if r.cache != nil {
		r.cache.InvalidateSystem(ctx, id)
	}
	return r.store.GetGameSystem(ctx, id)
}
