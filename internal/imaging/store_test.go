package imaging

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), 100, DefaultQuality)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	data := testImage(t, 400, 200)

	stats, err := store.Save("evt-1", "photo-1", data)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if stats.Width != 100 {
		t.Errorf("expected stored copy clamped to 100 wide, got %d", stats.Width)
	}

	loaded, err := store.Load("evt-1", "photo-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	w, h := decodeSize(t, loaded)
	if w != 100 || h != 50 {
		t.Errorf("expected 100x50 stored copy, got %dx%d", w, h)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load("evt-1", "missing"); !errors.Is(err, ErrNotStored) {
		t.Fatalf("expected ErrNotStored, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Save("evt-1", "photo-1", testImage(t, 50, 50)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Remove("evt-1", "photo-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Load("evt-1", "photo-1"); !errors.Is(err, ErrNotStored) {
		t.Errorf("expected ErrNotStored after remove, got %v", err)
	}
	// Removing twice is fine.
	if err := store.Remove("evt-1", "photo-1"); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestStoreRemoveEvent(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Save("evt-1", "photo-1", testImage(t, 50, 50)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Save("evt-1", "photo-2", testImage(t, 50, 50)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Save("evt-2", "photo-9", testImage(t, 50, 50)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.RemoveEvent("evt-1"); err != nil {
		t.Fatalf("RemoveEvent: %v", err)
	}
	if _, err := store.Load("evt-1", "photo-1"); !errors.Is(err, ErrNotStored) {
		t.Errorf("expected ErrNotStored after event removal, got %v", err)
	}
	if _, err := store.Load("evt-1", "photo-2"); !errors.Is(err, ErrNotStored) {
		t.Errorf("expected ErrNotStored after event removal, got %v", err)
	}
	if _, err := store.Load("evt-2", "photo-9"); err != nil {
		t.Errorf("evt-2 copy should survive, got %v", err)
	}

	// An event with no stored copies is a no-op.
	if err := store.RemoveEvent("missing"); err != nil {
		t.Errorf("RemoveEvent on missing event: %v", err)
	}
}

func TestStorePathEscapesSanitized(t *testing.T) {
	store := newTestStore(t)
	got := store.path("../../etc", "../passwd")
	if filepath.Dir(filepath.Dir(got)) != store.root {
		t.Errorf("path escaped the root: %s", got)
	}
}
