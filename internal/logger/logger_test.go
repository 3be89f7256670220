package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %v, got %v (%v)", in, want, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo, "json")
	l.Info("recognizer.done", "label", "500_rupees")
	l.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "recognizer.done" || rec["label"] != "500_rupees" {
		t.Fatalf("unexpected record %v", rec)
	}
	if ts, _ := rec["time"].(string); !strings.HasSuffix(ts, "Z") {
		t.Fatalf("expected UTC timestamp, got %q", ts)
	}
}

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "currency.log")
	cleanup, err := Setup(Config{Level: "info", Format: "json", Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	L().Info("server.started", "port", "8080")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "server.started") {
		t.Fatalf("expected log line, got %q", b)
	}
}
