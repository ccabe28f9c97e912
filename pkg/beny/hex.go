// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"fmt"
	"strings"
)

// Range is a half-open [Start, End) slice of hex character positions.
// A negative End is relative to the end of the message. A Step greater than
// zero splits the range into Step-wide chunks (interleaved byte fields).
type Range struct {
	Start int
	End   int
	Step  int
}

// Span returns a plain range without stride
func Span(start, end int) Range {
	return Range{Start: start, End: end}
}

// Width returns the number of hex characters covered by the range, or -1 for
// ranges relative to the end of the message
func (r Range) Width() int {
	if r.End < 0 {
		return -1
	}
	return r.End - r.Start
}

// bounds resolves the range against a message of the given length
func (r Range) bounds(length int) (int, int, error) {
	end := r.End
	if end < 0 {
		end += length
	}
	if r.Start < 0 || end > length || r.Start > end {
		return 0, 0, fmt.Errorf("%w: range [%d,%d) outside message of length %d", ErrMalformedHex, r.Start, r.End, length)
	}
	return r.Start, end, nil
}

// Slice returns the hex characters covered by the range
func (r Range) Slice(data string) (string, error) {
	start, end, err := r.bounds(len(data))
	if err != nil {
		return "", err
	}
	return data[start:end], nil
}

// Chunks splits a strided range into its Step-wide pieces
func (r Range) Chunks(data string) ([]string, error) {
	start, end, err := r.bounds(len(data))
	if err != nil {
		return nil, err
	}
	if r.Step <= 0 {
		return []string{data[start:end]}, nil
	}
	chunks := make([]string, 0, (end-start)/r.Step)
	for i := start; i < end; i += r.Step {
		if i+r.Step > len(data) {
			return nil, fmt.Errorf("%w: chunk at %d exceeds message of length %d", ErrMalformedHex, i, len(data))
		}
		chunks = append(chunks, data[i:i+r.Step])
	}
	return chunks, nil
}

// ParseHex parses hex digits as a big-endian unsigned integer
func ParseHex(digits string) (int, error) {
	if digits == "" {
		return 0, fmt.Errorf("%w: empty field", ErrMalformedHex)
	}
	if len(digits) > 15 {
		return 0, fmt.Errorf("%w: field %q too wide", ErrMalformedHex, digits)
	}
	value := 0
	for i := 0; i < len(digits); i++ {
		n, ok := nibble(digits[i])
		if !ok {
			return 0, fmt.Errorf("%w: invalid character %q at %d in %q", ErrMalformedHex, digits[i], i, digits)
		}
		value = value<<4 | n
	}
	return value, nil
}

func nibble(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// ByteValueAt parses the hex characters in r as a big-endian unsigned integer
func ByteValueAt(data string, r Range) (int, error) {
	digits, err := r.Slice(data)
	if err != nil {
		return 0, err
	}
	return ParseHex(digits)
}

// EncodeUnsigned renders value as zero-padded lowercase hex of the given width
func EncodeUnsigned(value, width int) string {
	if width <= 0 {
		return fmt.Sprintf("%x", value)
	}
	return fmt.Sprintf("%0*x", width, value)
}

// ComputeChecksum sums every byte of the message except its trailing checksum
// and returns the sum modulo 256. With hasPlaceholder the trailing checksum is
// the template token, otherwise it is the last two hex characters.
func ComputeChecksum(data string, hasPlaceholder bool) (int, error) {
	trim := 2
	if hasPlaceholder {
		trim = len(checksumToken)
	}
	if len(data) < trim {
		return 0, fmt.Errorf("%w: message too short for checksum (%d chars)", ErrMalformedHex, len(data))
	}
	body := data[:len(data)-trim]

	sum := 0
	for i := 0; i < len(body); i += 2 {
		end := i + 2
		if end > len(body) {
			end = len(body)
		}
		value, err := ParseHex(body[i:end])
		if err != nil {
			return 0, err
		}
		sum += value
	}
	return sum % 256, nil
}

// CalculateChecksum computes the checksum, excluding the checksum token if
// the message still contains one
func CalculateChecksum(data string) (int, error) {
	return ComputeChecksum(data, strings.Contains(data, checksumToken))
}

// ExtractChecksum returns the value of the last two hex characters
func ExtractChecksum(data string) (int, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: message too short for checksum (%d chars)", ErrMalformedHex, len(data))
	}
	return ParseHex(data[len(data)-2:])
}

// ValidateChecksum reports whether the trailing checksum matches the message
func ValidateChecksum(data string) bool {
	expected, err := ExtractChecksum(data)
	if err != nil {
		return false
	}
	calculated, err := ComputeChecksum(data, false)
	if err != nil {
		return false
	}
	return expected == calculated
}

// AppendChecksum returns body with its checksum appended
func AppendChecksum(body string) (string, error) {
	sum, err := ComputeChecksum(body+"00", false)
	if err != nil {
		return "", err
	}
	return body + EncodeUnsigned(sum, 2), nil
}
