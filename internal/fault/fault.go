// Package fault defines the error taxonomy shared by every mutation in
// the system. Errors carry a machine-readable kind plus the entity and id
// they refer to, so callers can branch with the Is* predicates instead of
// string matching.
package fault

import (
	"errors"
	"fmt"
)

// Kind categorizes an error.
type Kind string

const (
	// KindUnauthenticated means no actor could be resolved for the call.
	KindUnauthenticated Kind = "UNAUTHENTICATED"

	// KindUnauthorized means the actor lacks rights over the target entity.
	KindUnauthorized Kind = "UNAUTHORIZED"

	// KindNotFound means a referenced entity does not exist.
	KindNotFound Kind = "NOT_FOUND"

	// KindValidation means a structural invariant was violated before any write.
	KindValidation Kind = "VALIDATION"
)

// Error is the taxonomy error type. Entity and ID are optional context.
type Error struct {
	Kind    Kind
	Message string
	Entity  string
	ID      string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entity != "" && e.ID != "" {
		return fmt.Sprintf("%s: %s (%s=%s)", e.Kind, e.Message, e.Entity, e.ID)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unauthenticated creates an error for calls with no resolvable actor.
func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "no authenticated actor"}
}

// Unauthorized creates an error for an actor lacking rights over an entity.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NotFound creates an error for a missing entity reference.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found", Entity: entity, ID: id}
}

// Validation creates an error for a violated structural invariant.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// kindIs reports whether err (or anything it wraps) is a taxonomy error
// of the given kind.
func kindIs(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// IsUnauthenticated reports whether err is an unauthenticated error.
func IsUnauthenticated(err error) bool { return kindIs(err, KindUnauthenticated) }

// IsUnauthorized reports whether err is an unauthorized error.
func IsUnauthorized(err error) bool { return kindIs(err, KindUnauthorized) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return kindIs(err, KindNotFound) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return kindIs(err, KindValidation) }
