package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"fieldops.app/internal/obs"
	"fieldops.app/internal/requestctx"
)

type failingSink struct{ calls int }

func (f *failingSink) Append(ctx context.Context, e Entry) error {
	f.calls++
	return errors.New("insert denied")
}

type recordingSink struct{ entries []Entry }

func (r *recordingSink) Append(ctx context.Context, e Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestBestEffortSwallowsFailures(t *testing.T) {
	sink := &failingSink{}
	be := BestEffort{Next: sink}

	e := NewEntry(context.Background(), "secure-1", ActionView, nil)
	if err := be.Append(context.Background(), e); err != nil {
		t.Fatalf("best-effort sink must not return errors, got %v", err)
	}
	if sink.calls != 1 {
		t.Fatalf("underlying sink called %d times", sink.calls)
	}
}

func TestNewEntryFillsActorAndTime(t *testing.T) {
	ctx := requestctx.WithActor(context.Background(), "user-42")
	e := NewEntry(ctx, "secure-9", ActionUpdate, map[string]any{"field": "password"})

	if e.ID == "" || e.PerformedAt.IsZero() {
		t.Fatal("id or timestamp missing")
	}
	if e.PerformedBy != "user-42" {
		t.Fatalf("performed_by = %q", e.PerformedBy)
	}
	if e.Action != ActionUpdate || e.SubjectID != "secure-9" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := requestctx.WithRequestID(context.Background(), "req-123")
	ctx = requestctx.WithActor(ctx, "user-42")

	if err := LogEvent(ctx, "secure.view", map[string]any{"subject": "s-1"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "secure.view" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-123" || entry["user_id"] != "user-42" {
		t.Fatalf("context fields missing: %v", entry)
	}
}
