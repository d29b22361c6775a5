package idempotency

import "time"

// HeaderPair is one response header. Order and duplicates are preserved.
type HeaderPair struct {
	Name  string
	Value []byte
}

// Response is the cached result of a command, replayed byte-for-byte.
type Response struct {
	StatusCode int
	Headers    []HeaderPair
	Body       []byte
}

// Record is the stored state of an (actor, key) claim.
type Record struct {
	ActorID   string
	Key       Key
	CreatedAt time.Time
	Response  *Response
}

// NextAction tells the caller whether it owns the key or must replay.
// Exactly one field is set.
type NextAction struct {
	Claim *Claim
	Saved *Response
}
