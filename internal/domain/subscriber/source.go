package subscriber

import "context"

// Confirmed is one row of the confirmed subscriber list. Exactly one of Email
// or Err is meaningful: Err is set when the stored address fails validation.
type Confirmed struct {
	Email Email
	Raw   string
	Err   error
}

// Source reads subscribers. The signup and confirmation flow lives elsewhere.
type Source interface {
	ListConfirmed(ctx context.Context) ([]Confirmed, error)
}
