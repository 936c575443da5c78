package utils

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestDBLockExcludesSecondWriter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "opcheck.sqlite")

	first, err := NewDBLock(dbPath)
	if err != nil {
		t.Fatalf("NewDBLock: %v", err)
	}
	second, err := NewDBLock(dbPath)
	if err != nil {
		t.Fatalf("NewDBLock: %v", err)
	}

	if err := first.Lock(context.Background()); err != nil {
		t.Fatalf("first lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := second.Lock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the second lock to time out, got %v", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := second.Lock(context.Background()); err != nil {
		t.Fatalf("second lock after release: %v", err)
	}
	if err := second.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func TestNewDBLockRejectsEmptyPath(t *testing.T) {
	if _, err := NewDBLock(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}
