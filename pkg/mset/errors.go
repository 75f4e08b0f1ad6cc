package mset

import "github.com/pkg/errors"

var (
	// ErrSizeMismatch is returned when a sequence does not have one value per motor.
	ErrSizeMismatch = errors.New("value count does not match motor count")

	// ErrUnknownAttribute is returned for names outside the attribute registry.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrReadOnly is returned when setting an attribute that can only be read.
	ErrReadOnly = errors.New("attribute is read-only")

	// ErrInvalidValue is returned when a value cannot be converted to the
	// attribute's type.
	ErrInvalidValue = errors.New("invalid attribute value")
)
