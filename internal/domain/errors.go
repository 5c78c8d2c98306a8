package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError marks a seat (or other resource) that changed state between
// read and write. Allocation retries these before giving up.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// RetryableError is surfaced once internal retries are exhausted; the caller
// may safely re-submit the request.
type RetryableError struct {
	Msg string
	Err error
}

func (e RetryableError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "busy, retry later"
}

func (e RetryableError) Unwrap() error { return e.Err }

// PolicyError signals a rule violation such as a closed cancellation window.
// Never retried.
type PolicyError struct {
	Rule string
	Msg  string
}

func (e PolicyError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Rule != "" {
		return fmt.Sprintf("%s violated", e.Rule)
	}
	return "policy violation"
}

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsRetryable(err error) bool {
	var target RetryableError
	return errors.As(err, &target)
}

func IsPolicy(err error) bool {
	var target PolicyError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
