package thingstore

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrDriverNotFound   = errors.New("driver not found")
	ErrRecordNotFound   = errors.New("record not found")
	ErrRecordExists     = errors.New("record already exists")
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// ConnectionError reports a backend that could not be opened or reached.
type ConnectionError struct {
	Op     string
	Driver string
	Host   string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("%s %s: %v", e.Driver, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Driver, e.Op, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DriverError reports a backend adapter that is unknown or misbehaves.
type DriverError struct {
	Driver string
	Op     string
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s: %s: %v", e.Driver, e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// TransactionError reports a failed begin or commit.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// QueryError reports a statement the backend rejected. Query and Args are
// kept for logging and never included in Error().
type QueryError struct {
	Op         string
	Collection string
	Query      string
	Args       []any
	Err        error
}

func (e *QueryError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("query %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("query %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// RecordNotFoundError is returned by Update for an id that is not stored.
type RecordNotFoundError struct {
	Collection string
	ID         string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("%s: no record with id %q", e.Collection, e.ID)
}

func (e *RecordNotFoundError) Is(target error) bool { return target == ErrRecordNotFound }

// RecordExistsError is returned by Create for an id that is already taken.
type RecordExistsError struct {
	Collection string
	ID         string
}

func (e *RecordExistsError) Error() string {
	return fmt.Sprintf("%s: id %q already taken", e.Collection, e.ID)
}

func (e *RecordExistsError) Is(target error) bool { return target == ErrRecordExists }

// ValidationError rejects caller input before any backend is touched.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// ConfigError rejects a Config that cannot select or reach a backend.
type ConfigError struct {
	Field   string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error on %s=%v: %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// RepositoryError attaches the collection and repository operation to a
// backend error.
type RepositoryError struct {
	Collection string
	Op         string
	Context    map[string]any
	Err        error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Collection, e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

func NewDriverError(err error, driver, op string) *DriverError {
	return &DriverError{Driver: driver, Op: op, Err: err}
}

func NewRecordNotFoundError(collection, id string) *RecordNotFoundError {
	return &RecordNotFoundError{Collection: collection, ID: id}
}

func NewRecordExistsError(collection, id string) *RecordExistsError {
	return &RecordExistsError{Collection: collection, ID: id}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func NewValidationErrorForField(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func NewConfigError(message string) *ConfigError {
	return &ConfigError{Message: message}
}

func NewConfigErrorForField(field string, value any, message string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: message}
}

// The Wrap helpers return nil for a nil err so call sites can wrap
// unconditionally.

func WrapConnectionError(err error, op, driver, host string) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{Op: op, Driver: driver, Host: host, Err: err}
}

func WrapDriverError(err error, driver, op string) error {
	if err == nil {
		return nil
	}
	return NewDriverError(err, driver, op)
}

func WrapTransactionError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &TransactionError{Op: op, Err: err}
}

func WrapQueryError(err error, op, collection, query string, args []any) error {
	if err == nil {
		return nil
	}
	return &QueryError{Op: op, Collection: collection, Query: query, Args: args, Err: err}
}

func WrapRepositoryError(err error, collection, op string, context map[string]any) error {
	if err == nil {
		return nil
	}
	return &RepositoryError{Collection: collection, Op: op, Context: context, Err: err}
}

func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

func IsDriverError(err error) bool {
	var target *DriverError
	return errors.As(err, &target)
}

func IsTransactionError(err error) bool {
	var target *TransactionError
	return errors.As(err, &target)
}

func IsQueryError(err error) bool {
	var target *QueryError
	return errors.As(err, &target)
}

func IsRecordNotFoundError(err error) bool { return errors.Is(err, ErrRecordNotFound) }

func IsRecordExistsError(err error) bool { return errors.Is(err, ErrRecordExists) }

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}
