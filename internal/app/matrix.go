package app

import (
	"context"
	"database/sql"
	"errors"

	"codex/api/internal/store"
)

const (
	TypeGeneric      = "GENERIC"
	TypeCharacter    = "CHARACTER"
	TypeTown         = "TOWN"
	TypeGroup        = "GROUP"
	TypeOrganization = "ORGANIZATION"
	TypeDanger       = "DANGER"
)

// DocumentTypes is the closed set of document kinds the generator produces,
// in default display order.
var DocumentTypes = []string{
	TypeGeneric,
	TypeCharacter,
	TypeTown,
	TypeGroup,
	TypeOrganization,
	TypeDanger,
}

func knownDocumentType(documentType string) bool {
	for _, t := range DocumentTypes {
		if t == documentType {
			return true
		}
	}
	return false
}

// Gating reason codes surfaced by Matrix.IsAvailable.
const (
	ReasonAvailable         = "AVAILABLE"
	ReasonSystemNotFound    = "SYSTEM_NOT_FOUND"
	ReasonSystemUnavailable = "SYSTEM_UNAVAILABLE"
	ReasonTypeNotConfigured = "TYPE_NOT_CONFIGURED"
	ReasonTypeDisabled      = "TYPE_DISABLED"
)

// Availability is the outcome of the double-validation check.
type Availability struct {
	Available bool             `json:"available"`
	Reason    string           `json:"reason"`
	Detail    string           `json:"detail,omitempty"`
	Config    store.TypeConfig `json:"config"`
}

type ToggleResult struct {
	Row     store.TypeAvailability `json:"row"`
	Changed bool                   `json:"changed"`
}

type matrixStore interface {
	GetTypeAvailability(ctx context.Context, documentType, gameSystemID string) (store.TypeAvailability, error)
	ListTypeAvailability(ctx context.Context, gameSystemID string) ([]store.TypeAvailability, error)
	UpsertTypeAvailability(ctx context.Context, item store.TypeAvailability) error
	ReorderTypes(ctx context.Context, gameSystemID string, orders []store.TypeOrder) error
}

// Matrix gates document creation per (type, system) pair. It holds the
// registry; the registry never holds it.
type Matrix struct {
	registry *Registry
	store    matrixStore
	cache    AvailabilityCache
}

func NewMatrix(registry *Registry, matrixStore matrixStore, cache AvailabilityCache) *Matrix {
	return &Matrix{registry: registry, store: matrixStore, cache: cache}
}

// IsAvailable runs the two-level check: the game system must exist and be
// ACTIVE, then the (type, system) row must exist and be active. The first
// failure wins and names itself.
func (m *Matrix) IsAvailable(ctx context.Context, documentType, gameSystemID string) (Availability, error) {
	system, err := m.registry.Get(ctx, gameSystemID)
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) && domainErr.Kind == KindNotFound {
			return Availability{Reason: ReasonSystemNotFound}, nil
		}
		return Availability{}, err
	}
	if system.Status != SystemActive {
		return Availability{Reason: ReasonSystemUnavailable, Detail: system.MaintenanceMessage}, nil
	}

	row, err := m.lookupRow(ctx, documentType, gameSystemID)
	if errors.Is(err, sql.ErrNoRows) {
		return Availability{Reason: ReasonTypeNotConfigured}, nil
	}
	if err != nil {
		return Availability{}, err
	}
	if !row.Active {
		return Availability{Reason: ReasonTypeDisabled}, nil
	}
	return Availability{Available: true, Reason: ReasonAvailable, Config: row.Config}, nil
}

func (m *Matrix) lookupRow(ctx context.Context, documentType, gameSystemID string) (store.TypeAvailability, error) {
	if m.cache != nil {
		if row, ok := m.cache.GetType(ctx, documentType, gameSystemID); ok {
			return row, nil
		}
	}
	row, err := m.store.GetTypeAvailability(ctx, documentType, gameSystemID)
	if err != nil {
		return store.TypeAvailability{}, err
	}
	if m.cache != nil {
		m.cache.SetType(ctx, row)
	}
	return row, nil
}

// Toggle activates or deactivates a (type, system) pair, creating the row
// with a default configuration on first use. Toggling to the current state
// is a no-op and says so.
func (m *Matrix) Toggle(ctx context.Context, documentType, gameSystemID string, active bool) (ToggleResult, error) {
	if !knownDocumentType(documentType) {
		return ToggleResult{}, validationError(FieldViolation{
			Field:   "documentType",
			Message: "unknown document type " + documentType,
		})
	}
	if _, err := m.registry.Get(ctx, gameSystemID); err != nil {
		return ToggleResult{}, err
	}

	row, err := m.store.GetTypeAvailability(ctx, documentType, gameSystemID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ToggleResult{}, err
	}
	if err == nil && row.Active == active {
		return ToggleResult{Row: row, Changed: false}, nil
	}

	next := row
	if errors.Is(err, sql.ErrNoRows) {
		next = store.TypeAvailability{
			DocumentType: documentType,
			GameSystemID: gameSystemID,
			SortOrder:    defaultSortOrder(documentType),
			Config:       defaultTypeConfig(documentType),
		}
	}
	next.Active = active

	if err := m.store.UpsertTypeAvailability(ctx, next); err != nil {
		return ToggleResult{}, err
	}
	if m.cache != nil {
		m.cache.InvalidateType(ctx, documentType, gameSystemID)
	}

	saved, err := m.store.GetTypeAvailability(ctx, documentType, gameSystemID)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Row: saved, Changed: true}, nil
}

// Reorder applies bulk display-order updates; the store guarantees
// all-or-nothing application.
func (m *Matrix) Reorder(ctx context.Context, gameSystemID string, orders []store.TypeOrder) error {
	if len(orders) == 0 {
		return validationError(FieldViolation{Field: "orders", Message: "at least one entry is required"})
	}
	violations := make([]FieldViolation, 0)
	for _, order := range orders {
		if !knownDocumentType(order.DocumentType) {
			violations = append(violations, FieldViolation{
				Field:   "orders." + order.DocumentType,
				Message: "unknown document type",
			})
		}
	}
	if len(violations) > 0 {
		return validationError(violations...)
	}
	if _, err := m.registry.Get(ctx, gameSystemID); err != nil {
		return err
	}

	if err := m.store.ReorderTypes(ctx, gameSystemID, orders); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("TYPE_NOT_CONFIGURED", "one or more types are not configured for "+gameSystemID)
		}
		return err
	}
	for _, order := range orders {
		if m.cache != nil {
			m.cache.InvalidateType(ctx, order.DocumentType, gameSystemID)
		}
	}
	return nil
}

// List returns every configured row for a system in display order.
func (m *Matrix) List(ctx context.Context, gameSystemID string) ([]store.TypeAvailability, error) {
	if _, err := m.registry.Get(ctx, gameSystemID); err != nil {
		return nil, err
	}
	return m.store.ListTypeAvailability(ctx, gameSystemID)
}

// InitializeSystem seeds an inactive row for every document type so
// administrators can enable them one by one.
func (m *Matrix) InitializeSystem(ctx context.Context, gameSystemID string) error {
	if _, err := m.registry.Get(ctx, gameSystemID); err != nil {
		return err
	}
	for _, documentType := range DocumentTypes {
		_, err := m.store.GetTypeAvailability(ctx, documentType, gameSystemID)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		row := store.TypeAvailability{
			DocumentType: documentType,
			GameSystemID: gameSystemID,
			SortOrder:    defaultSortOrder(documentType),
			Config:       defaultTypeConfig(documentType),
		}
		if err := m.store.UpsertTypeAvailability(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func defaultSortOrder(documentType string) int {
	for i, t := range DocumentTypes {
		if t == documentType {
			return i
		}
	}
	return len(DocumentTypes)
}

// defaultTypeConfig is the per-type configuration used when a row is created
// lazily. Administrators refine it afterwards.
func defaultTypeConfig(documentType string) store.TypeConfig {
	switch documentType {
	case TypeCharacter:
		return store.TypeConfig{TemplateID: "tpl-character", RequiredFields: []string{"name"}}
	case TypeTown:
		return store.TypeConfig{TemplateID: "tpl-town", RequiredFields: []string{"name"}}
	case TypeGroup:
		return store.TypeConfig{TemplateID: "tpl-group", RequiredFields: []string{"name"}}
	case TypeOrganization:
		return store.TypeConfig{TemplateID: "tpl-organization", RequiredFields: []string{"name"}}
	case TypeDanger:
		return store.TypeConfig{TemplateID: "tpl-danger", RequiredFields: []string{"name", "threatLevel"}}
	default:
		return store.TypeConfig{TemplateID: "tpl-generic"}
	}
}
