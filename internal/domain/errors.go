package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError represents malformed input, rejected before any mutation.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	if e.Msg == "" {
		return "invalid input"
	}
	return e.Msg
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

// NotEligibleError represents a failed state-machine precondition, e.g.
// verifying a check-in that is no longer pending.
type NotEligibleError struct {
	Msg string
}

func (e NotEligibleError) Error() string {
	if e.Msg == "" {
		return "not eligible"
	}
	return e.Msg
}

func (e NotEligibleError) Is(target error) bool {
	_, ok := target.(NotEligibleError)
	if ok {
		return true
	}
	_, ok = target.(*NotEligibleError)
	return ok
}

var ErrNotEligible = NotEligibleError{}

// NotAuthorizedError represents an actor that is not the required party,
// e.g. resolving a dispute as someone other than its judge.
type NotAuthorizedError struct {
	Msg string
}

func (e NotAuthorizedError) Error() string {
	if e.Msg == "" {
		return "not authorized"
	}
	return e.Msg
}

func (e NotAuthorizedError) Is(target error) bool {
	_, ok := target.(NotAuthorizedError)
	if ok {
		return true
	}
	_, ok = target.(*NotAuthorizedError)
	return ok
}

var ErrNotAuthorized = NotAuthorizedError{}

// InsufficientFundsError represents a ledger debit that would overdraw.
type InsufficientFundsError struct {
	Currency Currency
	Need     int64
	Have     int64
}

func (e InsufficientFundsError) Error() string {
	if e.Need == 0 && e.Have == 0 {
		return "insufficient funds"
	}
	return fmt.Sprintf("insufficient %s: need %d, have %d", e.Currency, e.Need, e.Have)
}

func (e InsufficientFundsError) Is(target error) bool {
	_, ok := target.(InsufficientFundsError)
	if ok {
		return true
	}
	_, ok = target.(*InsufficientFundsError)
	return ok
}

var ErrInsufficientFunds = InsufficientFundsError{}

// ConflictError represents a uniqueness or idempotency violation, e.g. a
// duplicate dispute or a concurrent double-resolution.
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string {
	if e.Msg == "" {
		return "conflict"
	}
	return e.Msg
}

func (e ConflictError) Is(target error) bool {
	_, ok := target.(ConflictError)
	if ok {
		return true
	}
	_, ok = target.(*ConflictError)
	return ok
}

var ErrConflict = ConflictError{}
