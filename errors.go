package salesql

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error kinds. Every error returned by a pipeline stage wraps one of them.
var (
	// ErrInputNotFound indicates the input file does not exist
	ErrInputNotFound = errors.New("salesql: input not found")

	// ErrInputParse indicates malformed input: bad numbers, unparsable dates, ragged rows
	ErrInputParse = errors.New("salesql: input parse error")

	// ErrSchemaMismatch indicates the input header does not carry the declared columns
	ErrSchemaMismatch = errors.New("salesql: schema mismatch")

	// ErrDatabase indicates the relational store could not be opened or written
	ErrDatabase = errors.New("salesql: database error")

	// ErrQueryExecution indicates a catalog query failed
	ErrQueryExecution = errors.New("salesql: query execution failed")

	// ErrPersistence indicates an output file could not be written
	ErrPersistence = errors.New("salesql: persistence failed")

	// ErrCrossCheckMismatch indicates SQL and in-memory results disagree
	ErrCrossCheckMismatch = errors.New("salesql: cross-check mismatch")

	// ErrUndefinedAverage indicates the average order value has no invoices to average over
	ErrUndefinedAverage = errors.New("salesql: average order value undefined")

	// ErrEmptyData indicates that the data source contains no records
	ErrEmptyData = errors.New("salesql: empty data source")
)

// fatalErrors stop the run. Anything else is reported and the run goes on.
var fatalErrors = []error{
	ErrInputNotFound,
	ErrInputParse,
	ErrSchemaMismatch,
	ErrDatabase,
}

// IsFatal reports whether err must terminate the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range fatalErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FilePath  string
	TableName string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, filePath string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FilePath:  filePath,
	}
}

// WithTable adds table context to the error
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

func (ec *ErrorContext) prefix() string {
	parts := []string{fmt.Sprintf("salesql: %s failed", ec.Operation)}
	if ec.FilePath != "" {
		parts = append(parts, "file: "+ec.FilePath)
	}
	if ec.TableName != "" {
		parts = append(parts, "table: "+ec.TableName)
	}
	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}
	return strings.Join(parts, ", ")
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	if baseErr != nil {
		return fmt.Errorf("%s: %w", ec.prefix(), baseErr)
	}
	return errors.New(ec.prefix())
}

// Wrap creates a formatted error that matches both kind and cause with errors.Is.
func (ec *ErrorContext) Wrap(kind, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", ec.prefix(), kind)
	}
	return fmt.Errorf("%s: %w: %w", ec.prefix(), kind, cause)
}
