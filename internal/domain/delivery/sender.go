package delivery

import (
	"context"
	"errors"

	"jan-server/services/newsletter-api/internal/domain/subscriber"
)

// Sender delivers one email. Errors are transient unless wrapped with Permanent.
type Sender interface {
	Send(ctx context.Context, recipient subscriber.Email, subject, htmlContent, textContent string) error
}

// Failure classifies a send error.
type Failure int

const (
	FailureTransient Failure = iota
	FailurePermanent
)

// FailureClassifier decides whether a failed send is worth retrying.
type FailureClassifier func(err error) Failure

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// DefaultClassifier treats errors marked with Permanent as permanent and everything else as transient.
func DefaultClassifier(err error) Failure {
	if IsPermanent(err) {
		return FailurePermanent
	}
	return FailureTransient
}
