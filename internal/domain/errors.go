package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Activation workflow errors. ErrNotClaimable covers both unknown and already
// claimed codes; callers must not be able to tell the two apart.
var (
	ErrBadFormat           = errors.New("enter a code in the form CARD-XXXXXX")
	ErrNotClaimable        = errors.New("invalid or already-claimed code")
	ErrAlreadyClaimed      = errors.New("this code was just used by someone else")
	ErrGenerationExhausted = errors.New("activation code generation exhausted")
	ErrCodeCollision       = errors.New("activation code already in use")
)
