package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2024, 3, 1, 13, 45, 30, 0, time.UTC)
	got := LogFilePath("logs", "dispatchsim", start)
	if !strings.Contains(got, "dispatchsim.20240301_134530.log") {
		t.Errorf("unexpected log file path: %s", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	)
	slog.New(h).Info("hello", "unit", "17134")

	for name, buf := range map[string]*bytes.Buffer{"a": &a, "b": &b} {
		if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "17134") {
			t.Errorf("handler %s missed the record: %q", name, buf.String())
		}
	}
}

func TestMultiHandler_DropsNilHandlers(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(nil, slog.NewTextHandler(&buf, nil), nil)
	slog.New(h).Info("still works")
	if !strings.Contains(buf.String(), "still works") {
		t.Error("record lost after nil filtering")
	}
}

type failingHandler struct {
	slog.Handler
	err error
}

func (h failingHandler) Handle(ctx context.Context, r slog.Record) error { return h.err }

func TestMultiHandler_SinkFailureDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	broken := errors.New("sink down")
	h := NewMultiHandler(
		failingHandler{Handler: slog.NewTextHandler(io.Discard, nil), err: broken},
		slog.NewTextHandler(&buf, nil),
	)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "survives", 0))
	if !errors.Is(err, broken) {
		t.Errorf("expected the sink error to surface, got %v", err)
	}
	if !strings.Contains(buf.String(), "survives") {
		t.Errorf("healthy sink missed the record: %q", buf.String())
	}
}

func TestDispatcherLogger_EmitsKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	l := NewDispatcherLogger(zerolog.New(&buf))

	l.Info("command complete", "command", "unit:assign", 42, "answer", "dangling")

	out := buf.String()
	if !strings.Contains(out, `"command":"unit:assign"`) {
		t.Errorf("string key missing: %q", out)
	}
	if !strings.Contains(out, `"42":"answer"`) {
		t.Errorf("non-string key not stringified: %q", out)
	}
	if strings.Contains(out, "dangling") {
		t.Errorf("trailing value without key should be ignored: %q", out)
	}
}

func TestContextHandler_InjectsAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.String("scenario", "den-haag-01")}
	})
	slog.New(h).Info("tick")
	if !strings.Contains(buf.String(), "scenario=den-haag-01") {
		t.Errorf("context attr missing: %q", buf.String())
	}
}

func TestSlogManager_SetupAndLogger(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "debug", nil, nil)

	m.Logger().Debug("written to session file")
	if !strings.Contains(file.String(), "written to session file") {
		t.Errorf("session file handler missed the record: %q", file.String())
	}
}

func TestSlogManager_LoggerBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	if m.Logger() == nil {
		t.Fatal("Logger must never return nil")
	}
}
