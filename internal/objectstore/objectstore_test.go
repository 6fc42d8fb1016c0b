package objectstore

import (
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Put("uploads/abc/data.csv", []byte("lat,lng\n")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get("uploads/abc/data.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "lat,lng\n" {
		t.Errorf("got %q", got)
	}

	if err := store.Delete("uploads/abc/data.csv"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("uploads/abc/data.csv"); err == nil {
		t.Error("expected error after delete")
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("../escape", []byte("x")); err == nil {
		t.Error("expected invalid key error")
	}
	if _, err := store.Get("/etc/passwd"); err == nil {
		t.Error("expected invalid key error")
	}
}

func TestFileStoreDeleteMissingIsNoop(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("never/existed"); err != nil {
		t.Errorf("delete of missing key should be a no-op, got %v", err)
	}
}
