package subscriber

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

const maxEmailLength = 254

var validate = validator.New()

// ErrInvalidEmail is returned for stored or submitted addresses that are not deliverable.
var ErrInvalidEmail = platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid subscriber email", nil, "subscriber-invalid-email")

// Email is a validated subscriber address.
type Email struct {
	value string
}

// ParseEmail validates raw and returns it as an Email.
func ParseEmail(raw string) (Email, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxEmailLength {
		return Email{}, fmt.Errorf("%q: %w", raw, ErrInvalidEmail)
	}
	if err := validate.Var(trimmed, "email"); err != nil {
		return Email{}, fmt.Errorf("%q: %w", raw, ErrInvalidEmail)
	}
	return Email{value: trimmed}, nil
}

func (e Email) String() string {
	return e.value
}
