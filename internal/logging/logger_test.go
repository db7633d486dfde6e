package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"": "info", "info": "info", "debug": "debug", "warn": "warn", "error": "error"}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		if err != nil || got.String() != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %s", raw, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("attempt submitted", zap.String("attempt_id", "a1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"attempt_id":"a1"`) {
		t.Fatalf("expected structured field in file, got %s", data)
	}
}
