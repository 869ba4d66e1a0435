package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/undergnarly/odoo-mcp-chat/internal/config"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

// observedLogger builds a logger writing JSON lines into buf.
func observedLogger(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LevelKey:   "level",
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core)
}

func loggedFields(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "debug"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level not enabled")
	}

	logger, err = NewLogger(config.ObservabilityConfig{LogLevel: "warn"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be suppressed at warn level")
	}
}

func TestNewLogger_invalidLevelDefaultsToInfo(t *testing.T) {
	logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "chatty"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info level should be enabled")
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be suppressed at the default level")
	}
}

func TestLoggerFromContext(t *testing.T) {
	fallback := zap.NewNop()
	custom := zap.NewNop().Named("custom")

	if got := LoggerFrom(context.Background(), fallback); got != fallback {
		t.Error("expected fallback for empty context")
	}

	ctx := WithLogger(context.Background(), custom)
	if got := LoggerFrom(ctx, fallback); got != custom {
		t.Error("expected context logger")
	}
}

func TestRequestLogger_enrichesFromRequestContext(t *testing.T) {
	var buf bytes.Buffer
	base := observedLogger(&buf)

	ctx := model.WithRequestContext(context.Background(), &model.RequestContext{
		SubjectID:     "ops-bot",
		SessionID:     "s1",
		CorrelationID: "corr-9",
		TraceID:       "trace-42",
	})

	RequestLogger(ctx, base).Info("handled")

	fields := loggedFields(t, &buf)
	if fields["subject_id"] != "ops-bot" {
		t.Errorf("subject_id = %v", fields["subject_id"])
	}
	if fields["session_id"] != "s1" {
		t.Errorf("session_id = %v", fields["session_id"])
	}
	if fields["correlation_id"] != "corr-9" {
		t.Errorf("correlation_id = %v", fields["correlation_id"])
	}
	if fields["trace_id"] != "trace-42" {
		t.Errorf("trace_id = %v", fields["trace_id"])
	}
}

func TestRequestLogger_withoutRequestContext(t *testing.T) {
	var buf bytes.Buffer
	base := observedLogger(&buf)

	RequestLogger(context.Background(), base).Info("bare")

	fields := loggedFields(t, &buf)
	if _, ok := fields["subject_id"]; ok {
		t.Error("no request fields expected without a RequestContext")
	}
}

func TestRedactBody(t *testing.T) {
	body := map[string]any{
		"name":     "ACME",
		"password": "hunter2",
		"api_key":  "abc",
		"nested": map[string]any{
			"token": "xyz",
			"email": "a@b.com",
		},
	}

	redacted := RedactBody(body, []string{"email"})

	if redacted["name"] != "ACME" {
		t.Errorf("name = %v", redacted["name"])
	}
	if redacted["password"] != "[REDACTED]" || redacted["api_key"] != "[REDACTED]" {
		t.Errorf("redacted = %v", redacted)
	}
	nested := redacted["nested"].(map[string]any)
	if nested["token"] != "[REDACTED]" {
		t.Errorf("nested token = %v", nested["token"])
	}
	if nested["email"] != "[REDACTED]" {
		t.Errorf("custom sensitive field not redacted: %v", nested["email"])
	}

	// Input untouched.
	if body["password"] != "hunter2" {
		t.Error("RedactBody must not mutate its input")
	}
}

func TestRedactBody_nil(t *testing.T) {
	if RedactBody(nil, nil) != nil {
		t.Error("nil body should stay nil")
	}
}
