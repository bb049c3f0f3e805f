package engine

import "errors"

// Engine error kinds. Every operation fails with exactly one of these,
// wrapped with call-site detail; callers classify with errors.Is.
var (
	// ErrNotFound means the referenced template, instance or step does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTemplate means a structural precondition is unmet, such as a template with no steps.
	ErrInvalidTemplate = errors.New("invalid workflow template")
	// ErrConditionNotMet means the first step's condition rejected the instance data at creation.
	ErrConditionNotMet = errors.New("initial condition not met")
	// ErrInvalidState means the instance is not in the status the operation
	// requires, including the loser of a concurrent approve/reject race.
	ErrInvalidState = errors.New("workflow is not in progress")
	// ErrForbidden means the acting user's role does not match the current step's role.
	ErrForbidden = errors.New("user does not hold the required role")
	// ErrValidation means the caller input is malformed, such as a reject without feedback.
	ErrValidation = errors.New("invalid input")
)
