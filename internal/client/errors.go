package client

import (
	"errors"
	"fmt"
)

// RepositoryError is a network or store failure on a repository call.
// Polling loops swallow these and retry on the next tick; one-shot calls
// surface them so the caller can retry explicitly without losing input.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// AuthorizationError is a rejected doctor-gated action. Fatal to that
// action only; session state is unchanged.
type AuthorizationError struct {
	Op      string
	Message string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: not authorized: %s", e.Op, e.Message)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var authErr *AuthorizationError
	return errors.As(err, &authErr)
}
