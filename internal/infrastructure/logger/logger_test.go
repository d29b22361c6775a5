package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		"WARN":     zerolog.WarnLevel,
		"bogus":    zerolog.InfoLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}
	for raw, want := range tests {
		if got := parseLevel(raw); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
