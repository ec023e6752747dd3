package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "prod")
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug должен отбрасываться вне dev, получили %q", buf.String())
	}

	buf.Reset()
	logger = newLogger(&buf, "dev")
	component := Component(logger, "viewing")
	component.Debug().Msg("visible")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ожидали JSON, получили %q: %v", buf.String(), err)
	}
	if entry["component"] != "viewing" || entry["message"] != "visible" {
		t.Fatalf("неожиданная запись: %v", entry)
	}
}
