package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentLedger,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})

	logger.InfoContext(context.Background(), "Expense added", FieldHousehold, "home")
	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "household=home") {
		t.Errorf("unexpected output %q", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentWorker).Warn("Push failed")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("expected worker component, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Errorf("expected fallback logger, got %q", l.Component())
	}
	logger := New(Config{Component: ComponentScheduler})
	ctx := NewContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected stored logger")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithHousehold("home").
		WithOperation(OpCreate).
		WithExpense("e1", "Rent", 120000, "ESSENTIAL").
		WithRecord("cf_expenses", 3).
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldHousehold] != "home" || f[FieldAmountCents] != int64(120000) || f[FieldVersion] != int64(3) {
		t.Errorf("unexpected fields %v", f)
	}
	if f[FieldError] != "boom" {
		t.Errorf("nil error must not overwrite, got %v", f[FieldError])
	}
	if got := len(f.ToSlice()); got != len(f)*2 {
		t.Errorf("expected %d slice entries, got %d", len(f)*2, got)
	}
}
