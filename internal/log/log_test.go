package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	defer SetLevel(LevelInfo)

	Debug("hidden", "k", 1)
	Info("shown", "calendar", "primary")
	Error("failed", errors.New("boom"), "op", "list")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "[INFO] shown calendar=primary") {
		t.Errorf("missing info line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed err=boom op=list") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestFormatKVsQuotesSpaces(t *testing.T) {
	got := formatKVs("title", "Seven Samurai", "odd")
	if got != ` title="Seven Samurai"` {
		t.Errorf("formatKVs = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
