package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/elhub/auth-grant-manager-sub001/internal/auth"
	"github.com/elhub/auth-grant-manager-sub001/internal/obs"
)

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithParty(ctx, auth.AuthorizedParty{
		PartyType: "Organization",
		IDType:    "GlobalLocationNumber",
		IDValue:   "7080000000000",
	})

	if err := LogEvent(ctx, "document.confirm", map[string]any{"document_id": "doc-1"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "document.confirm" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["party_id"] != "7080000000000" {
		t.Fatalf("unexpected party id: %v", entry["party_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["document_id"] != "doc-1" {
		t.Fatalf("unexpected fields: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}
