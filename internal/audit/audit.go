// Package audit records who touched sensitive records. Entries are
// append-only; nothing in this codebase updates or deletes them.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"fieldops.app/internal/ids"
	"fieldops.app/internal/obs"
	"fieldops.app/internal/requestctx"
)

// Actions recorded against secure records.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entry is one append-only audit record.
type Entry struct {
	ID          string         `json:"id"`
	SubjectID   string         `json:"subject_id"`
	Action      string         `json:"action"`
	PerformedBy string         `json:"performed_by"`
	PerformedAt time.Time      `json:"performed_at"`
	Details     map[string]any `json:"details,omitempty"`
}

// Sink persists audit entries.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// NewEntry fills in the id, actor and timestamp from context.
func NewEntry(ctx context.Context, subjectID, action string, details map[string]any) Entry {
	actor, _ := requestctx.Actor(ctx)
	return Entry{
		ID:          ids.New(),
		SubjectID:   subjectID,
		Action:      action,
		PerformedBy: actor,
		PerformedAt: time.Now().UTC(),
		Details:     details,
	}
}

// BestEffort wraps a sink so that append failures are logged and swallowed:
// audit logging never fails the primary operation.
type BestEffort struct {
	Next Sink
}

func (b BestEffort) Append(ctx context.Context, e Entry) error {
	if b.Next == nil {
		return nil
	}
	if err := b.Next.Append(ctx, e); err != nil {
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "warn",
			"msg":   "audit append failed",
			"event": e.Action,
			"err":   err.Error(),
		})
	}
	return nil
}

// LogEvent writes a structured audit line to the shared logger, enriched with
// request and user context. Used alongside the durable sink for operational
// visibility.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return nil
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := requestctx.RequestID(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if userID, ok := requestctx.Actor(ctx); ok {
		entry["user_id"] = userID
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
