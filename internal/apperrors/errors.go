// Package apperrors defines the error taxonomy shared by the aggregation
// engine, the stores and the HTTP layer. Each concrete type carries context
// for the caller; the sentinel kinds below support errors.Is checks.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConflict         = errors.New("write conflict")
)

// ValidationError names the missing or malformed field so the caller gets
// an actionable message rather than a generic failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("missing required field: %s", field)}
}

func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("invalid %s: %s", field, message)}
}

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFound(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

// StoreUnavailableError wraps a persistence failure with the operation name
// and record key so the caller can decide whether to retry. The engine
// itself never retries.
type StoreUnavailableError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: store unavailable for %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func StoreUnavailable(op, key string, err error) *StoreUnavailableError {
	return &StoreUnavailableError{Op: op, Key: key, Err: err}
}

// ConflictError reports an optimistic-concurrency collision. The caller
// should re-fetch and reapply.
type ConflictError struct {
	Op  string
	Key string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: concurrent write conflict for %q", e.Op, e.Key)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
