package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"orgadmin.io/internal/auth"
)

func TestEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core))

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithPrincipal(ctx, auth.Principal{
		Identity:      &auth.Identity{ID: "user-42", Username: "alice", Role: &auth.Role{Code: auth.RoleHRStaff}},
		Authenticated: true,
	})

	if err := l.Event(ctx, "audit.test", zap.String("foo", "bar")); err != nil {
		t.Fatalf("Event failed: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.LoggerName != "audit" {
		t.Fatalf("unexpected logger name: %q", entry.LoggerName)
	}
	fields := entry.ContextMap()
	want := map[string]string{
		"type":       "audit",
		"event":      "audit.test",
		"request_id": "req-123",
		"actor_id":   "user-42",
		"actor":      "alice",
		"actor_role": auth.RoleHRStaff,
		"foo":        "bar",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("field %s = %v, want %v", k, fields[k], v)
		}
	}
}

func TestEventWithoutContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core))

	if err := l.Event(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty event")
	}
	if err := l.Event(context.Background(), "anon"); err != nil {
		t.Fatalf("Event: %v", err)
	}
	fields := logs.All()[0].ContextMap()
	if _, ok := fields["actor_id"]; ok {
		t.Fatalf("anonymous event should carry no actor: %v", fields)
	}
	if _, ok := fields["request_id"]; ok {
		t.Fatalf("unexpected request id: %v", fields)
	}
}
