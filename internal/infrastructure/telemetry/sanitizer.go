package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// PIILevel defines the level of PII sanitization
type PIILevel string

const (
	// PIILevelNone redacts addresses entirely
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces addresses with a salted hash prefix
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull performs no sanitization
	PIILevelFull PIILevel = "full"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Sanitizer keeps subscriber addresses out of logs and spans.
type Sanitizer struct {
	level PIILevel
	salt  string
}

// NewSanitizer creates a sanitizer. salt keeps hashes stable per deployment.
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	return &Sanitizer{level: level, salt: salt}
}

// SanitizeEmail rewrites a single recipient address.
func (s *Sanitizer) SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	switch s.level {
	case PIILevelFull:
		return email
	case PIILevelNone:
		return "[EMAIL:REDACTED]"
	default:
		return fmt.Sprintf("[EMAIL:%s]", s.hash(email))
	}
}

// SanitizeText rewrites every address found in free text such as provider error bodies.
func (s *Sanitizer) SanitizeText(input string) string {
	if s.level == PIILevelFull {
		return input
	}
	return emailPattern.ReplaceAllStringFunc(input, s.SanitizeEmail)
}

// hash creates a SHA-256 hash with salt
func (s *Sanitizer) hash(data string) string {
	h := sha256.New()
	h.Write([]byte(data + s.salt))
	// First 8 chars for readability
	return hex.EncodeToString(h.Sum(nil))[:8]
}
