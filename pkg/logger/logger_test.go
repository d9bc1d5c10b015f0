package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestErrorfAttachesError(t *testing.T) {
	buf := &bytes.Buffer{}
	NewSlogLoggerWithWriter(buf, "info").Errorf(errors.New("store unavailable"), "save %s failed", "ABC-123")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", buf.String())
	}
	if entry["level"] != "ERROR" || entry["msg"] != "save ABC-123 failed" || entry["error"] != "store unavailable" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"debug", 4},
		{"", 3},
		{"WARN", 2},
		{"error", 1},
	}

	for _, tt := range tests {
		buf := &bytes.Buffer{}
		l := NewSlogLoggerWithWriter(buf, tt.level)
		l.Debugf("d")
		l.Infof("i")
		l.Warnf("w")
		l.Errorf(nil, "e")

		if got := strings.Count(buf.String(), "\n"); got != tt.want {
			t.Errorf("level %q: %d lines, want %d", tt.level, got, tt.want)
		}
	}
}
