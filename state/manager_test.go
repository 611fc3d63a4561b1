package state

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/evanofslack/ddns-sync/metrics"
)

func newTestManager(t *testing.T) Manager {
	t.Helper()
	manager, err := New(filepath.Join(t.TempDir(), "badger"), metrics.New())
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestRecordAndListEvents(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	now := time.Now().Unix()

	events := []Event{
		{Domain: "a.example.com", Type: "A", Old: "203.0.113.5", New: "203.0.113.9", Op: "updated", Time: now},
		{Domain: "b.example.com", Type: "AAAA", New: "2001:db8::1", Op: "created", Time: now},
	}
	for _, event := range events {
		if err := manager.RecordEvent(ctx, event); err != nil {
			t.Fatalf("RecordEvent failed: %v", err)
		}
	}

	loaded, err := manager.Events(ctx)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, events) {
		t.Errorf("expected %+v but got %+v", events, loaded)
	}
}

func TestRecordEventOverwritesSameTarget(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	first := Event{Domain: "a.example.com", Type: "A", New: "203.0.113.5", Op: "created", Time: 100}
	second := Event{Domain: "a.example.com", Type: "A", Old: "203.0.113.5", New: "203.0.113.9", Op: "updated", Time: 200}

	if err := manager.RecordEvent(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := manager.RecordEvent(ctx, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := manager.Events(ctx)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 event, got %d", len(loaded))
	}
	if !reflect.DeepEqual(loaded[0], second) {
		t.Errorf("expected latest event %+v, got %+v", second, loaded[0])
	}
}

func TestEventsEmptyStore(t *testing.T) {
	manager := newTestManager(t)

	loaded, err := manager.Events(context.Background())
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected no events, got %d", len(loaded))
	}
}

func TestNewError(t *testing.T) {
	// Try to create manager with invalid path: a path nested under a
	// regular file cannot be created even when running as root.
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(filepath.Join(file, "path", "that", "cannot", "be", "created"), metrics.New()); err == nil {
		t.Fatal("expected error for invalid path but got nil")
	}
}
