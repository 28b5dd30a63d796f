package logs

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}

	logger.Infow("hidden")
	logger.Warnw("shown", "lines", 3)
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected info message to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, `"lines": 3`) {
		t.Errorf("expected warn message with field, got %q", out)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}
