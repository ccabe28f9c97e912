// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Decoder turns raw ASCII-hex messages into structured messages.
// It holds no per-message state and is safe for concurrent use.
type Decoder struct {
	logger zerolog.Logger
}

// NewDecoder creates a new protocol decoder
func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{
		logger: logger.With().Str("component", "decoder").Logger(),
	}
}

// Decode validates and decodes a raw message. With KindAuto the message kind
// is detected from the header. Checksum and detection failures abort the
// decode; a failing field is set to nil and recorded on Message.Errors.
func (d *Decoder) Decode(raw string, expected Kind) (*Message, error) {
	data := strings.TrimSpace(raw)

	checksum, err := ExtractChecksum(data)
	if err != nil {
		return nil, err
	}
	calculated, err := ComputeChecksum(data, false)
	if err != nil {
		return nil, err
	}
	if checksum != calculated {
		d.logger.Debug().Str("data", data).Msg("checksum does not match")
		return nil, fmt.Errorf("%w: %q", ErrChecksumMismatch, data)
	}

	kind := expected
	if kind == KindAuto {
		detected, err := DetectKind(data)
		if err != nil {
			return nil, err
		}
		kind = detected
	}

	def := Lookup(kind)
	if def == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMessageType, kind)
	}

	msg := newMessage(kind, data)

	for _, f := range headerFields {
		value, err := ByteValueAt(data, f.Range)
		if err != nil {
			return nil, fmt.Errorf("header field %s: %w", f.Name, err)
		}
		msg.Fields[f.Name] = value
	}

	for _, f := range def.Fields {
		value, extra, err := decodeField(data, f)
		if err != nil {
			digits, _ := f.Range.Slice(data)
			fieldErr := &FieldError{Field: f.Name, Raw: digits, Err: err}
			msg.Errors = append(msg.Errors, fieldErr)
			msg.Fields[f.Name] = nil
			d.logger.Warn().
				Str("kind", def.Name).
				Str("field", f.Name).
				Err(err).
				Msg("invalid field value")
			continue
		}
		msg.Fields[f.Name] = value
		for k, v := range extra {
			msg.Fields[k] = v
		}
	}

	d.logger.Debug().
		Str("kind", def.Name).
		Str("data", data).
		Interface("fields", msg.Fields).
		Msg("message received")

	return msg, nil
}

var nopDecoder = NewDecoder(zerolog.Nop())

// Decode decodes a raw message without logging
func Decode(raw string, expected Kind) (*Message, error) {
	return nopDecoder.Decode(raw, expected)
}
