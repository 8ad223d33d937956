package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	created, err := store.Create(ctx, "user@example.com", "ya29.token")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected non-empty session id")
	}

	got, err := store.Lookup(ctx, created.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", got.Email)
	}
	if got.AccessToken != "ya29.token" {
		t.Errorf("AccessToken = %q", got.AccessToken)
	}
}

func TestMemoryStore_LookupUnknown(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	if _, err := store.Lookup(context.Background(), "no-such-id"); err != ErrNotFound {
		t.Fatalf("Lookup = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_LookupExpired(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	created, err := store.Create(ctx, "user@example.com", "tok")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := store.Lookup(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("Lookup of expired session = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_DestroyIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	created, _ := store.Create(ctx, "user@example.com", "tok")

	if err := store.Destroy(ctx, created.ID); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, err := store.Lookup(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("Lookup after Destroy = %v, want ErrNotFound", err)
	}
	// Destroying again must not error.
	if err := store.Destroy(ctx, created.ID); err != nil {
		t.Fatalf("second Destroy failed: %v", err)
	}
}

func TestMemoryStore_UniqueIDs(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	a, _ := store.Create(ctx, "a@example.com", "tok-a")
	b, _ := store.Create(ctx, "b@example.com", "tok-b")
	if a.ID == b.ID {
		t.Fatalf("two sessions share id %q", a.ID)
	}
}
