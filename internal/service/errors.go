package service

import (
	"errors"
	"fmt"
)

// DomainError is a business-rule violation. Each kind is a sentinel value, so
// callers compare with errors.Is.
type DomainError struct {
	Kind    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func newDomainError(kind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

var (
	ErrAlreadyRegistered          = newDomainError("already_registered", "user is already registered for this outing")
	ErrEventFull                  = newDomainError("event_full", "outing has reached its maximum number of participants")
	ErrRegistrationDeadlinePassed = newDomainError("registration_deadline_passed", "registration deadline has passed")
	ErrEventNotOpen               = newDomainError("event_not_open", "outing is not open for registration")
	ErrNotRegistered              = newDomainError("not_registered", "user is not registered for this outing")
	ErrEventAlreadyStarted        = newDomainError("event_already_started", "outing has already started")
	ErrInvalidStateForUnregister  = newDomainError("invalid_state_for_unregister", "registrations can no longer be withdrawn for this outing")
	ErrNotAuthorized              = newDomainError("not_authorized", "user is not allowed to perform this action")
	ErrInvalidStateForCancel      = newDomainError("invalid_state_for_cancel", "outing can no longer be cancelled")
	ErrInvalidStateForEdit        = newDomainError("invalid_state_for_edit", "outing can no longer be edited")
	ErrInvalidStateForDelete      = newDomainError("invalid_state_for_delete", "only draft outings can be deleted")
	ErrInvalidStateForPublish     = newDomainError("invalid_state_for_publish", "only draft outings can be published")
	ErrEventNotFound              = newDomainError("event_not_found", "outing not found")
	ErrInvalidOuting              = newDomainError("invalid_outing", "outing is invalid")
	ErrConcurrentUpdate           = newDomainError("concurrent_update", "outing was modified by another request, retry")
)

// ValidationError wraps ErrInvalidOuting with the offending detail.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidOuting.Message, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidOuting
}

func invalid(format string, args ...any) error {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// InfrastructureError reports a failure of a collaborator (database, broker).
// It is never retried by the service.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

func infra(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// IsDomainError reports whether err is, or wraps, a business-rule violation.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// Kind returns the domain error kind carried by err, or "" for other errors.
func Kind(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
