// Package model provides domain model for salesql
package model

import "errors"

var (
	// ErrDuplicateColumnName is returned when a file contains duplicate column names
	ErrDuplicateColumnName = errors.New("duplicate column name")

	// ErrMissingColumn is returned when a declared input column is absent from the header
	ErrMissingColumn = errors.New("missing column")

	// ErrUnparsableDatetime is returned when no supported layout matches a datetime value
	ErrUnparsableDatetime = errors.New("unparsable datetime")
)
