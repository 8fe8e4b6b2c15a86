package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/obs"
)

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	prev := obs.SetLogger(obs.NewLogger("prod", &buf))
	defer obs.SetLogger(prev)

	ctx := context.Background()
	ctx = obs.WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithIdentity(ctx, auth.Identity{AccountID: 42, Username: "alice"}, auth.SourceToken)

	if err := LogEvent(ctx, "todo.created", map[string]any{"todo_id": 7}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "todo.created" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["account_id"] != float64(42) || entry["username"] != "alice" {
		t.Fatalf("identity missing: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["todo_id"] != float64(7) {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}

	if err := LogEvent(ctx, "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}
