package mailbox

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// Validation failures surfaced to callers as stable 4xx-class codes.
var (
	// ErrInvalidAction is returned for an action name outside the vocabulary.
	ErrInvalidAction = errors.New("invalid action")

	// ErrNoForwardAddress is returned for a forward without a target address.
	ErrNoForwardAddress = errors.New("no forward address")

	// ErrAccountNotFound is returned when the target account has no tokens
	// in the registry. No provider call is made in that case.
	ErrAccountNotFound = errors.New("account not connected")
)

// AuthError marks a provider-reported credential failure for one account.
// The fetcher propagates it immediately, aborting the multi-account fetch,
// so the caller can surface a single re-authenticate signal.
type AuthError struct {
	Account string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Account, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthFailure reports whether err indicates expired or invalid
// credentials: a provider 401/403, or an error message the provider uses
// for dead tokens.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401 || apiErr.Code == 403
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"invalid_grant", "invalid credentials", "token expired", "token has been expired or revoked"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
