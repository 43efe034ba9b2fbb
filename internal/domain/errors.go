package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Audit errors
	ErrMsgSessionConflict = "an audit session is already active"
	ErrMsgSessionNotFound = "audit session not found"
	ErrMsgItemNotFound    = "audit item not found"

	// Allocation errors
	ErrMsgInvalidQuantity    = "invalid quantity"
	ErrMsgInsufficientSource = "insufficient source stacks"
	ErrMsgIdentityNotFound   = "card identity not found"
	ErrMsgStackNotFound      = "card stack not found"
	ErrMsgSameLocation       = "source and destination are the same location"
	ErrMsgInvariantViolation = "allocation invariant violated"

	// Lookup errors
	ErrMsgNotFound = "not found"

	// Input errors
	ErrMsgInvalidInput = "invalid input"
	ErrMsgUnauthorized = "unauthorized"
)

// Common domain errors
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	ErrSessionConflict = errors.New(ErrMsgSessionConflict)
	ErrSessionNotFound = errors.New(ErrMsgSessionNotFound)
	ErrItemNotFound    = errors.New(ErrMsgItemNotFound)

	ErrInvalidQuantity    = errors.New(ErrMsgInvalidQuantity)
	ErrInsufficientSource = errors.New(ErrMsgInsufficientSource)
	ErrIdentityNotFound   = errors.New(ErrMsgIdentityNotFound)
	ErrStackNotFound      = errors.New(ErrMsgStackNotFound)
	ErrSameLocation       = errors.New(ErrMsgSameLocation)
	ErrInvariantViolation = errors.New(ErrMsgInvariantViolation)

	// ErrNotFound is returned when a foil swap cannot find one of its sides.
	ErrNotFound = errors.New(ErrMsgNotFound)

	ErrInvalidInput = errors.New(ErrMsgInvalidInput)
	ErrUnauthorized = errors.New(ErrMsgUnauthorized)
)
