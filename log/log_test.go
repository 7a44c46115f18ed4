package log

import (
	"testing"

	"github.com/hatlonely/rooster/log/logger"
)

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	origin := Default()
	defer SetDefault(origin)

	discard := Discard()
	SetDefault(discard)
	if Default() != discard {
		t.Error("SetDefault() did not replace the default logger")
	}

	SetDefault(nil)
	if Default() != discard {
		t.Error("SetDefault(nil) should be ignored")
	}
}

func TestNew(t *testing.T) {
	l, err := New(&logger.SLogOptions{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Debug("hello", "key", "value")

	if _, err := New(&logger.SLogOptions{Format: "xml"}); err == nil {
		t.Error("New() should reject unknown format")
	}
}
