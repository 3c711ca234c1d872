package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONIncludesService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: DEBUG, Format: JSON, Output: &buf, Service: "lobby"})

	log.Info("Message sent", "id", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry[SERVICE] != "lobby" {
		t.Errorf("expected service=lobby, got %v", entry[SERVICE])
	}
	if entry["id"] != "abc" {
		t.Errorf("expected id=abc, got %v", entry["id"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		debugOn bool
		warnOn  bool
	}{
		{DEBUG, true, true},
		{INFO, false, true},
		{WARN, false, true},
		{ERROR, false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: tt.level, Format: TEXT, Output: &buf})

			log.Debug("dbg")
			if got := strings.Contains(buf.String(), "msg=dbg"); got != tt.debugOn {
				t.Errorf("debug emitted = %v, want %v", got, tt.debugOn)
			}
			log.Warn("wrn")
			if got := strings.Contains(buf.String(), "msg=wrn"); got != tt.warnOn {
				t.Errorf("warn emitted = %v, want %v", got, tt.warnOn)
			}
		})
	}
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: TEXT, Output: &buf}).With("channel_id", "lobby:hotel:1")

	log.Info("Subscribed")

	if !strings.Contains(buf.String(), "channel_id=lobby:hotel:1") {
		t.Errorf("expected channel_id attribute in %q", buf.String())
	}
}
