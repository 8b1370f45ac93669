package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"text":  FormatText,
		"TINT":  FormatText,
		"json":  FormatJSON,
		" Json": FormatJSON,
		"auto":  FormatAuto,
		"":      FormatAuto,
		"xml":   FormatAuto,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
		"trace":   LevelTrace,
		"Warning": slog.LevelWarn,
		"off":     LevelOff,
		"quiet":   LevelOff,
		"debug+2": slog.LevelDebug + 2,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandler_AutoIsJSONOffTTY(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, FormatAuto, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("stored clip", "id", "abc")

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "hidden") {
		t.Error("debug record written at info level")
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", line, err)
	}
	if record["msg"] != "stored clip" || record["id"] != "abc" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, FormatText, slog.LevelDebug)).Debug("tick")

	if out := buf.String(); !strings.Contains(out, "tick") || strings.HasPrefix(out, "{") {
		t.Errorf("expected human-readable output, got %q", out)
	}
}

func TestComponent(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(NewHandler(&buf, FormatJSON, slog.LevelInfo)))

	Component("monitor").Info("stored clipboard text")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record["component"] != "monitor" {
		t.Errorf("component = %v, want monitor", record["component"])
	}
}

func TestLevelOffSilencesErrors(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, FormatJSON, ParseLevel("off"))).Error("boom")
	if buf.Len() != 0 {
		t.Errorf("expected no output at level off, got %q", buf.String())
	}
}
