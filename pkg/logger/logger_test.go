package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriterTagsService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "api", slog.LevelWarn)
	log.Info("dropped")
	log.Warn("kept", "site_id", "a")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "api" || entry["msg"] != "kept" || entry["site_id"] != "a" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
