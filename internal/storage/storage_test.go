package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type snapshot struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestStore_PutAndGet(t *testing.T) {
	s := New(t.TempDir(), "chat")
	ctx := context.Background()

	want := snapshot{ID: "abc", Count: 2}
	if err := s.Put(ctx, "sessions", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var got snapshot
	if err := s.Get(ctx, "sessions", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := New(t.TempDir(), "chat")

	var got snapshot
	if err := s.Get(context.Background(), "missing", &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := New(t.TempDir(), "chat")
	ctx := context.Background()

	if err := s.Put(ctx, "sessions", snapshot{ID: "x"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Delete(ctx, "sessions"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var got snapshot
	if err := s.Get(ctx, "sessions", &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}

	// Deleting again is not an error.
	if err := s.Delete(ctx, "sessions"); err != nil {
		t.Errorf("Delete of absent key should not error: %v", err)
	}
}

func TestStore_Exists(t *testing.T) {
	s := New(t.TempDir(), "chat")
	ctx := context.Background()

	if s.Exists(ctx, "sessions") {
		t.Error("key should not exist yet")
	}
	if err := s.Put(ctx, "sessions", snapshot{ID: "x"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !s.Exists(ctx, "sessions") {
		t.Error("key should exist after Put")
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	s := New(t.TempDir(), "chat")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := s.Put(ctx, "sessions", snapshot{ID: "c", Count: n}); err != nil {
				t.Errorf("concurrent Put failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var got snapshot
	if err := s.Get(ctx, "sessions", &got); err != nil {
		t.Fatalf("Get after concurrent writes failed: %v", err)
	}
	if got.ID != "c" {
		t.Errorf("unexpected value after concurrent writes: %+v", got)
	}
}

func TestStore_List(t *testing.T) {
	s := New(t.TempDir(), "chat")
	ctx := context.Background()

	keys, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List on missing dir failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}

	for _, key := range []string{"a", "b"} {
		if err := s.Put(ctx, key, snapshot{ID: key}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	keys, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}
}

func TestStore_AtomicWrite(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "chat")

	if err := s.Put(context.Background(), "sessions", snapshot{ID: "x"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	tmp := filepath.Join(dir, "chat", "sessions.json.tmp")
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("temp file should not remain after a successful write")
	}
}
