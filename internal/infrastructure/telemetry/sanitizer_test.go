package telemetry

import (
	"strings"
	"testing"
)

func TestSanitizeEmail(t *testing.T) {
	hashed := NewSanitizer(PIILevelHashed, "salt")
	a := hashed.SanitizeEmail("ursula@example.com")
	if !strings.HasPrefix(a, "[EMAIL:") || strings.Contains(a, "ursula") {
		t.Fatalf("unexpected hashed value %q", a)
	}
	if b := hashed.SanitizeEmail("ursula@example.com"); a != b {
		t.Errorf("hash not stable: %q vs %q", a, b)
	}
	if other := NewSanitizer(PIILevelHashed, "pepper").SanitizeEmail("ursula@example.com"); other == a {
		t.Errorf("salt ignored")
	}

	if got := NewSanitizer(PIILevelNone, "").SanitizeEmail("ursula@example.com"); got != "[EMAIL:REDACTED]" {
		t.Errorf("none level: got %q", got)
	}
	if got := NewSanitizer(PIILevelFull, "").SanitizeEmail("ursula@example.com"); got != "ursula@example.com" {
		t.Errorf("full level: got %q", got)
	}
	if got := hashed.SanitizeEmail(""); got != "" {
		t.Errorf("empty: got %q", got)
	}
}

func TestSanitizeText(t *testing.T) {
	s := NewSanitizer(PIILevelNone, "")
	got := s.SanitizeText("422: recipient ursula@example.com is inactive")
	if got != "422: recipient [EMAIL:REDACTED] is inactive" {
		t.Errorf("got %q", got)
	}
}
