package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"extfilter/internal/domain"
)

func TestFixedExtensionSeed_CreatesDefaultsUnblocked(t *testing.T) {
	db := setupExtensionTestDB(t)
	fixed := NewFixedExtensionRegistry(db)
	ctx := context.Background()

	created, err := fixed.Seed(ctx, domain.DefaultFixedExtensions)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if created != len(domain.DefaultFixedExtensions) {
		t.Fatalf("Seed created %d rows, want %d", created, len(domain.DefaultFixedExtensions))
	}

	rows, err := fixed.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != len(domain.DefaultFixedExtensions) {
		t.Fatalf("List returned %d rows, want %d", len(rows), len(domain.DefaultFixedExtensions))
	}
	for idx, row := range rows {
		if row.Name != domain.DefaultFixedExtensions[idx] {
			t.Fatalf("row %d name = %q, want %q", idx, row.Name, domain.DefaultFixedExtensions[idx])
		}
		if row.IsBlocked {
			t.Fatalf("row %q seeded as blocked", row.Name)
		}
		if row.CreatedAt.IsZero() || row.UpdatedAt.IsZero() {
			t.Fatalf("row %q is missing timestamps", row.Name)
		}
	}
}

func TestFixedExtensionSeed_IsIdempotentAndKeepsToggles(t *testing.T) {
	db := setupExtensionTestDB(t)
	fixed := seedDefaultFixed(t, db)
	ctx := context.Background()

	if _, err := fixed.SetBlocked(ctx, "exe", true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	created, err := fixed.Seed(ctx, domain.DefaultFixedExtensions)
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if created != 0 {
		t.Fatalf("second Seed created %d rows, want 0", created)
	}

	var count int64
	if err := db.Model(&domain.FixedExtension{}).Count(&count).Error; err != nil {
		t.Fatalf("count fixed extensions: %v", err)
	}
	if count != int64(len(domain.DefaultFixedExtensions)) {
		t.Fatalf("fixed extension count = %d, want %d", count, len(domain.DefaultFixedExtensions))
	}

	exe, err := fixed.Get(ctx, "exe")
	if err != nil {
		t.Fatalf("Get exe: %v", err)
	}
	if !exe.IsBlocked {
		t.Fatal("re-seeding reset the operator toggled block flag")
	}
}

func TestFixedExtensionSeed_RejectsInvalidNames(t *testing.T) {
	db := setupExtensionTestDB(t)
	fixed := NewFixedExtensionRegistry(db)

	_, err := fixed.Seed(context.Background(), []string{"bat", "tar.gz"})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Seed error = %v, want ErrInvalidFormat", err)
	}

	rows, err := fixed.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("invalid seed wrote %d rows", len(rows))
	}
}

func TestFixedExtensionSetBlocked(t *testing.T) {
	db := setupExtensionTestDB(t)
	fixed := seedDefaultFixed(t, db)
	ctx := context.Background()

	before, err := fixed.Get(ctx, "scr")
	if err != nil {
		t.Fatalf("Get scr: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	updated, err := fixed.SetBlocked(ctx, " SCR ", true)
	if err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}
	if updated.Name != "scr" || !updated.IsBlocked {
		t.Fatalf("SetBlocked returned %+v, want blocked scr", updated)
	}
	if !updated.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("updated_at was not refreshed: before %v after %v", before.UpdatedAt, updated.UpdatedAt)
	}

	blocked, found, err := fixed.Lookup(ctx, "scr")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found || !blocked {
		t.Fatalf("Lookup(scr) = blocked %v found %v, want true true", blocked, found)
	}

	if _, found, err := fixed.Lookup(ctx, "scr "); err != nil || found {
		t.Fatalf("Lookup(%q) = found %v err %v, want exact match only", "scr ", found, err)
	}

	unblocked, err := fixed.SetBlocked(ctx, "scr", false)
	if err != nil {
		t.Fatalf("SetBlocked false: %v", err)
	}
	if unblocked.IsBlocked {
		t.Fatal("SetBlocked(false) left the entry blocked")
	}
}

func TestFixedExtensionSetBlocked_UnknownNameDoesNotUpsert(t *testing.T) {
	db := setupExtensionTestDB(t)
	fixed := seedDefaultFixed(t, db)
	ctx := context.Background()

	if _, err := fixed.SetBlocked(ctx, "pdf", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetBlocked(pdf) error = %v, want ErrNotFound", err)
	}

	_, found, err := fixed.Lookup(ctx, "pdf")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Fatal("SetBlocked created a fixed extension")
	}

	rows, err := fixed.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != len(domain.DefaultFixedExtensions) {
		t.Fatalf("fixed registry size changed to %d", len(rows))
	}
}
