/*
errors.go - Centralized error types for the checkout engine

ERROR CATEGORIES:
  1. Lookup errors - stale equipment or issue ids (NotFound)
  2. Rule violations - borrowing caps, unavailable items, closed records
  3. Session errors - issuing without a logged-in user

  All of them are expected, user-facing conditions. Store failures are
  wrapped with context and passed through unchanged.

USAGE:
  _, err := engine.Issue(ctx, "tt-bat-3")
  var limitErr *checkout.LimitExceededError
  if errors.As(err, &limitErr) {
      // limitErr.SubKind, limitErr.Held, limitErr.Cap
  }
*/
package checkout

import (
	"errors"
	"fmt"

	"github.com/warp/sports-checkout/equipment"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an equipment or issue id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrLimitExceeded is returned when a sport cap would be violated.
	ErrLimitExceeded = errors.New("borrowing limit exceeded")

	// ErrAlreadyReturned is returned when returning a closed issue record.
	ErrAlreadyReturned = errors.New("already returned")

	// ErrUnavailable is returned when issuing an item that is already out.
	ErrUnavailable = errors.New("equipment not available")

	// ErrNoSession is returned when issuing without a current user.
	ErrNoSession = errors.New("no user logged in")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the kind of record that was missing.
type NotFoundError struct {
	Kind string // "equipment" or "issue"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// LimitExceededError reports which cap blocked an issuance.
// SubKind is empty when the sport-wide total triggered.
type LimitExceededError struct {
	Sport   equipment.Sport
	SubKind equipment.SubKind
	Held    int
	Cap     int
}

func (e *LimitExceededError) Error() string {
	if e.SubKind == equipment.SubKindNone {
		return fmt.Sprintf("limit exceeded: at most %d %s item(s) at a time, holding %d",
			e.Cap, e.Sport, e.Held)
	}
	return fmt.Sprintf("limit exceeded: at most %d %s %s(s) at a time, holding %d",
		e.Cap, e.Sport, e.SubKind, e.Held)
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is a rule rejection the caller
// should display rather than treat as a failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrAlreadyReturned) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrNotFound)
}
