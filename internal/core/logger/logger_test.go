package logger

import (
	"context"
	"errors"
	"testing"
)

type recordingLogger struct {
	entries []LogEntry
}

func (r *recordingLogger) Log(_ context.Context, entry LogEntry) {
	r.entries = append(r.entries, entry)
}

func (r *recordingLogger) Shutdown(context.Context) error { return nil }

func TestPackageLevelHelpers(t *testing.T) {
	rec := &recordingLogger{}
	previous := SetLogger(rec)
	defer SetLogger(previous)

	ctx := context.Background()
	boom := errors.New("boom")

	Info(ctx, "placed", map[string]any{"order_id": "o1"})
	Warn(ctx, "dropped", nil)
	Error(ctx, "failed", boom, nil)

	if len(rec.entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(rec.entries))
	}
	if rec.entries[0].Level != LogLevelInfo || rec.entries[0].Attributes["order_id"] != "o1" {
		t.Fatalf("unexpected first entry: %+v", rec.entries[0])
	}
	if rec.entries[1].Level != LogLevelWarn {
		t.Fatalf("expected WARN, got %s", rec.entries[1].Level)
	}
	if rec.entries[2].Level != LogLevelError || !errors.Is(rec.entries[2].Error, boom) {
		t.Fatalf("unexpected error entry: %+v", rec.entries[2])
	}
	if rec.entries[2].Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestZapLogger(t *testing.T) {
	l, err := initZapLogger("inventory-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Log(context.Background(), newLogEntry(LogLevelDebug, "hello", errors.New("x"), map[string]any{"k": 1}))
	if err := l.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}
