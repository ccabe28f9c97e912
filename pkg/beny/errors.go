// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHex is returned for non-hex characters or out-of-range slices
	ErrMalformedHex = errors.New("malformed hex")

	// ErrChecksumMismatch is returned when the trailing checksum does not match.
	// Callers should drop the message.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnknownMessageType is returned when no catalog entry matches a message
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrInvalidEnumValue is returned when a field value is outside its enumeration
	ErrInvalidEnumValue = errors.New("invalid enum value")

	// ErrMissingPlaceholderValue indicates an inconsistent catalog template
	ErrMissingPlaceholderValue = errors.New("missing placeholder value")
)

// FieldError records a transform failure on a single decoded field
type FieldError struct {
	Field string
	Raw   string
	Err   error
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s (raw %q): %v", e.Field, e.Raw, e.Err)
}

// Unwrap returns the underlying sentinel
func (e *FieldError) Unwrap() error {
	return e.Err
}
