package idempotency

import (
	"context"
	"fmt"

	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

// MaxKeyLength bounds the stored key size.
const MaxKeyLength = 50

const invalidKeyUUID = "idempotency-invalid-key"

// ErrInvalidKey matches every key rejected by ParseKey (compare with errors.Is).
var ErrInvalidKey = platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid idempotency key", nil, invalidKeyUUID)

// Key is a client-supplied token that identifies one logical submission.
type Key string

// ParseKey validates raw. Allowed characters are the URL unreserved set.
func ParseKey(raw string) (Key, error) {
	if raw == "" {
		return "", invalidKey("idempotency key cannot be empty")
	}
	if len(raw) > MaxKeyLength {
		return "", invalidKey(fmt.Sprintf("idempotency key must be at most %d characters", MaxKeyLength))
	}
	for i := 0; i < len(raw); i++ {
		if !allowedKeyByte(raw[i]) {
			return "", invalidKey(fmt.Sprintf("idempotency key contains disallowed character %q", raw[i]))
		}
	}
	return Key(raw), nil
}

func (k Key) String() string {
	return string(k)
}

func allowedKeyByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-', b == '_', b == '.', b == '~':
		return true
	}
	return false
}

func invalidKey(message string) error {
	return platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, nil, invalidKeyUUID)
}
