package logger

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"":        logrus.InfoLevel,
		"DEBUG":   logrus.DebugLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	}

	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradedash.log")
	log := New(Config{Level: "debug", Format: "json", Output: path, MaxSize: 1})

	if log.Level() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", log.Level())
	}
	if _, ok := log.log.Out.(interface{ Rotate() error }); !ok {
		t.Fatalf("expected lumberjack writer, got %T", log.log.Out)
	}
}

func TestComponentField(t *testing.T) {
	entry := Discard().WithComponent("ws")
	if entry.Data["component"] != "ws" {
		t.Fatalf("component field = %v", entry.Data["component"])
	}
}
