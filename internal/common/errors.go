// Package common holds the sentinel errors shared by every layer of the
// service. Callers match them with errors.Is; the HTTP layer maps them to
// status codes in one place.
package common

import "errors"

var (
	// Authentication and authorization.
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrInvalidSignature = errors.New("invalid signature")

	// Request and entity errors.
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// Ledger errors.
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateEvent    = errors.New("duplicate event")

	// Webhook resolution.
	ErrUnknownUser = errors.New("unknown user")

	// ErrInternal marks failures the caller cannot fix, such as a store
	// outage. It outranks every other sentinel it is joined with.
	ErrInternal = errors.New("internal error")
)
