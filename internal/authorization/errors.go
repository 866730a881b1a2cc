package authorization

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("authorization: not found")
	ErrNotAuthorized      = errors.New("authorization: not authorized")
	ErrIllegalState       = errors.New("authorization: illegal state")
	ErrExpired            = errors.New("authorization: expired")
	ErrInvalidRequestedBy = errors.New("authorization: requestedBy does not match")
	ErrInvalidInput       = errors.New("authorization: invalid input")
)

// PersonResolutionError indicates the person registry could not resolve a
// national identity number.
type PersonResolutionError struct {
	Err error
}

func (e *PersonResolutionError) Error() string {
	return fmt.Sprintf("authorization: resolve person: %v", e.Err)
}

func (e *PersonResolutionError) Unwrap() error { return e.Err }

// PartyResolutionError indicates a party could not be resolved or created.
type PartyResolutionError struct {
	Identifier Identifier
	Err        error
}

func (e *PartyResolutionError) Error() string {
	return fmt.Sprintf("authorization: resolve party %s/%s: %v", e.Identifier.IDType, e.Identifier.IDValue, e.Err)
}

func (e *PartyResolutionError) Unwrap() error { return e.Err }
