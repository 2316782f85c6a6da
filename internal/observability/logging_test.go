package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerIncludesCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	ctx := WithCorrelationID(context.Background(), "corr-123")
	ctx = context.WithValue(ctx, SessionIDKey, "sess-9")
	logger.Info(ctx, "tool completed", "tool", "context_store")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line not JSON: %v", err)
	}
	if record["correlation_id"] != "corr-123" {
		t.Fatalf("correlation_id = %v", record["correlation_id"])
	}
	if record["session_id"] != "sess-9" {
		t.Fatalf("session_id = %v", record["session_id"])
	}
	if record["tool"] != "context_store" {
		t.Fatalf("tool = %v", record["tool"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text", Output: &buf})

	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Fatal("warn line missing")
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	if CorrelationID(context.Background()) != "" {
		t.Fatal("empty context should have no correlation id")
	}
	ctx := WithCorrelationID(context.Background(), "abc")
	if CorrelationID(ctx) != "abc" {
		t.Fatal("correlation id lost")
	}
}
