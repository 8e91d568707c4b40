package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	t.Run("valid level", func(t *testing.T) {
		l := New("debug")
		if l.GetLevel() != zerolog.DebugLevel {
			t.Errorf("Expected debug level, got %v", l.GetLevel())
		}
	})

	t.Run("invalid level defaults to info", func(t *testing.T) {
		l := New("loud")
		if l.GetLevel() != zerolog.InfoLevel {
			t.Errorf("Expected info level fallback, got %v", l.GetLevel())
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		l := New("WARN")
		if l.GetLevel() != zerolog.WarnLevel {
			t.Errorf("Expected warn level, got %v", l.GetLevel())
		}
	})
}
