package app

import (
	"context"
	"database/sql"
	"testing"

	"codex/api/internal/store"
)

func TestIsAvailableDoubleValidation(t *testing.T) {
	system := store.GameSystem{ID: "sys-test", Status: SystemActive}
	row := store.TypeAvailability{DocumentType: TypeCharacter, GameSystemID: "sys-test", Active: true,
		Config: store.TypeConfig{TemplateID: "tpl-character", RequiredFields: []string{"name"}}}
	systemErr := error(nil)
	rowErr := error(nil)

	fs := &fakeStore{
		getGameSystemFn: func(context.Context, string) (store.GameSystem, error) {
			return system, systemErr
		},
		getTypeAvailabilityFn: func(context.Context, string, string) (store.TypeAvailability, error) {
			return row, rowErr
		},
	}
	matrix := NewMatrix(NewRegistry(fs, nil), fs, nil)

	check := func(t *testing.T, wantAvailable bool, wantReason string) {
		t.Helper()
		availability, err := matrix.IsAvailable(context.Background(), TypeCharacter, "sys-test")
		if err != nil {
			t.Fatalf("is available: %v", err)
		}
		if availability.Available != wantAvailable || availability.Reason != wantReason {
			t.Errorf("expected available=%v reason=%s, got %+v", wantAvailable, wantReason, availability)
		}
	}

	t.Run("both levels pass", func(t *testing.T) {
		check(t, true, ReasonAvailable)
	})

	t.Run("system missing", func(t *testing.T) {
		systemErr = sql.ErrNoRows
		defer func() { systemErr = nil }()
		check(t, false, ReasonSystemNotFound)
	})

	t.Run("system not active", func(t *testing.T) {
		system.Status = SystemMaintenance
		system.MaintenanceMessage = "migrating schemas"
		defer func() { system.Status = SystemActive; system.MaintenanceMessage = "" }()

		availability, err := matrix.IsAvailable(context.Background(), TypeCharacter, "sys-test")
		if err != nil {
			t.Fatalf("is available: %v", err)
		}
		if availability.Available || availability.Reason != ReasonSystemUnavailable {
			t.Errorf("expected SYSTEM_UNAVAILABLE, got %+v", availability)
		}
		if availability.Detail != "migrating schemas" {
			t.Errorf("expected the maintenance message as detail, got %q", availability.Detail)
		}
	})

	t.Run("row missing", func(t *testing.T) {
		rowErr = sql.ErrNoRows
		defer func() { rowErr = nil }()
		check(t, false, ReasonTypeNotConfigured)
	})

	t.Run("row disabled", func(t *testing.T) {
		row.Active = false
		defer func() { row.Active = true }()
		check(t, false, ReasonTypeDisabled)
	})

	t.Run("available carries the type config", func(t *testing.T) {
		availability, err := matrix.IsAvailable(context.Background(), TypeCharacter, "sys-test")
		if err != nil {
			t.Fatalf("is available: %v", err)
		}
		if len(availability.Config.RequiredFields) != 1 || availability.Config.RequiredFields[0] != "name" {
			t.Errorf("expected the row config to pass through, got %+v", availability.Config)
		}
	})
}

func TestToggle(t *testing.T) {
	rows := make(map[string]store.TypeAvailability)
	fs := &fakeStore{
		getGameSystemFn: func(_ context.Context, id string) (store.GameSystem, error) {
			return store.GameSystem{ID: id, Status: SystemActive}, nil
		},
		getTypeAvailabilityFn: func(_ context.Context, documentType, gameSystemID string) (store.TypeAvailability, error) {
			row, ok := rows[documentType]
			if !ok {
				return store.TypeAvailability{}, sql.ErrNoRows
			}
			return row, nil
		},
		upsertTypeAvailabilityFn: func(_ context.Context, row store.TypeAvailability) error {
			rows[row.DocumentType] = row
			return nil
		},
	}
	matrix := NewMatrix(NewRegistry(fs, nil), fs, nil)

	t.Run("unknown type", func(t *testing.T) {
		_, err := matrix.Toggle(context.Background(), "SPACESHIP", "sys-test", true)
		wantDomainError(t, err, KindValidation, "VALIDATION_FAILED")
	})

	t.Run("first toggle creates the row with defaults", func(t *testing.T) {
		result, err := matrix.Toggle(context.Background(), TypeDanger, "sys-test", true)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if !result.Changed || !result.Row.Active {
			t.Errorf("expected a changed, active row, got %+v", result)
		}
		if result.Row.Config.TemplateID != "tpl-danger" {
			t.Errorf("expected the default danger config, got %+v", result.Row.Config)
		}
	})

	t.Run("repeating the state is a no-op", func(t *testing.T) {
		result, err := matrix.Toggle(context.Background(), TypeDanger, "sys-test", true)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if result.Changed {
			t.Error("expected no change when toggling to the current state")
		}
	})

	t.Run("disable keeps the row", func(t *testing.T) {
		result, err := matrix.Toggle(context.Background(), TypeDanger, "sys-test", false)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if !result.Changed || result.Row.Active {
			t.Errorf("expected a deactivated row, got %+v", result)
		}
	})
}

func TestReorderValidation(t *testing.T) {
	fs := &fakeStore{
		getGameSystemFn: func(_ context.Context, id string) (store.GameSystem, error) {
			return store.GameSystem{ID: id, Status: SystemActive}, nil
		},
	}
	matrix := NewMatrix(NewRegistry(fs, nil), fs, nil)

	err := matrix.Reorder(context.Background(), "sys-test", nil)
	wantDomainError(t, err, KindValidation, "VALIDATION_FAILED")

	err = matrix.Reorder(context.Background(), "sys-test", []store.TypeOrder{{DocumentType: "SPACESHIP", SortOrder: 1}})
	wantDomainError(t, err, KindValidation, "VALIDATION_FAILED")

	fs.reorderTypesFn = func(context.Context, string, []store.TypeOrder) error { return sql.ErrNoRows }
	err = matrix.Reorder(context.Background(), "sys-test", []store.TypeOrder{{DocumentType: TypeTown, SortOrder: 1}})
	wantDomainError(t, err, KindNotFound, "TYPE_NOT_CONFIGURED")
}

func TestInitializeSystemSeedsEveryType(t *testing.T) {
	rows := make(map[string]store.TypeAvailability)
	fs := &fakeStore{
		getGameSystemFn: func(_ context.Context, id string) (store.GameSystem, error) {
			return store.GameSystem{ID: id, Status: SystemBeta}, nil
		},
		getTypeAvailabilityFn: func(_ context.Context, documentType, gameSystemID string) (store.TypeAvailability, error) {
			row, ok := rows[documentType]
			if !ok {
				return store.TypeAvailability{}, sql.ErrNoRows
			}
			return row, nil
		},
		upsertTypeAvailabilityFn: func(_ context.Context, row store.TypeAvailability) error {
			rows[row.DocumentType] = row
			return nil
		},
	}
	matrix := NewMatrix(NewRegistry(fs, nil), fs, nil)

	if err := matrix.InitializeSystem(context.Background(), "sys-new"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(rows) != len(DocumentTypes) {
		t.Fatalf("expected %d rows, got %d", len(DocumentTypes), len(rows))
	}
	for i, documentType := range DocumentTypes {
		row := rows[documentType]
		if row.Active {
			t.Errorf("seeded rows must start inactive, %s is active", documentType)
		}
		if row.SortOrder != i {
			t.Errorf("expected sort order %d for %s, got %d", i, documentType, row.SortOrder)
		}
	}

	// Running again leaves existing rows alone.
	rows[TypeCharacter] = store.TypeAvailability{DocumentType: TypeCharacter, Active: true}
	if err := matrix.InitializeSystem(context.Background(), "sys-new"); err != nil {
		t.Fatalf("reinitialize: %v", err)
	}
	if !rows[TypeCharacter].Active {
		t.Error("reinitialize must not overwrite existing rows")
	}
}
