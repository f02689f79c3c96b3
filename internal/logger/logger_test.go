package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"quizmaster-service/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"": "info", "debug": "debug", "WARN": "warn", "nonsense": "info"}
	for raw, want := range cases {
		if got := ParseLevel(raw).String(); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(config.Log{Level: "info", File: path})
	log.Info("attempt graded", zap.String("user", "u1"))
	log.Debug("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"attempt graded"`) || !strings.Contains(string(data), `"user":"u1"`) {
		t.Fatalf("unexpected log file content %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("debug entry written at info level")
	}
}
