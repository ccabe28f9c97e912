// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// placeholderPattern matches template tokens such as [pin]
var placeholderPattern = regexp.MustCompile(`\[[a-z_]+\]`)

// Encoder builds outbound messages from catalog templates.
// Handles placeholder substitution and checksum calculation.
type Encoder struct {
	logger zerolog.Logger
}

// NewEncoder creates a new Beny message encoder.
func NewEncoder(logger zerolog.Logger) *Encoder {
	return &Encoder{
		logger: logger.With().Str("component", "encoder").Logger(),
	}
}

// Encode substitutes params into the template of kind and appends the
// checksum. Values are hex digit strings inserted as-is; callers are
// responsible for their width. Parameters without a matching placeholder are
// ignored, placeholders without a parameter are left in place.
func (e *Encoder) Encode(kind Kind, params map[string]string) (string, error) {
	def := Lookup(kind)
	if def == nil || def.Direction != Outbound {
		return "", fmt.Errorf("%w: %v has no outbound template", ErrMissingPlaceholderValue, kind)
	}
	if !strings.HasSuffix(def.Template, checksumToken) {
		return "", fmt.Errorf("%w: template of %s lacks %s", ErrMissingPlaceholderValue, def.Name, checksumToken)
	}

	msg := def.Template

	// Sorted for a deterministic substitution order
	names := make([]string, 0, len(params))
	for name := range params {
		if "["+name+"]" == checksumToken {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		token := "[" + name + "]"
		if !strings.Contains(msg, token) {
			continue
		}
		msg = strings.ReplaceAll(msg, token, params[name])
	}

	if leftover := Placeholders(msg); len(leftover) > 1 {
		e.logger.Warn().
			Str("kind", def.Name).
			Strs("placeholders", leftover[:len(leftover)-1]).
			Msg("unsubstituted placeholders in message")
	}

	checksum, err := ComputeChecksum(msg, true)
	if err != nil {
		return "", fmt.Errorf("checksum of %s: %w", def.Name, err)
	}

	msg = strings.Replace(msg, checksumToken, EncodeUnsigned(checksum, 2), 1)

	e.logger.Debug().
		Str("kind", def.Name).
		Str("data", msg).
		Interface("params", redactPin(params)).
		Msg("message built")

	return msg, nil
}

// EncodeRequest encodes a request produced by one of the command builders
func (e *Encoder) EncodeRequest(req Request) (string, error) {
	return e.Encode(req.Kind, req.Params)
}

// Placeholders returns the placeholder names still present in a template
func Placeholders(template string) []string {
	tokens := placeholderPattern.FindAllString(template, -1)
	names := make([]string, 0, len(tokens))
	for _, token := range tokens {
		names = append(names, strings.Trim(token, "[]"))
	}
	return names
}

func redactPin(params map[string]string) map[string]string {
	if _, ok := params["pin"]; !ok {
		return params
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	out["pin"] = "*****"
	return out
}

var nopEncoder = NewEncoder(zerolog.Nop())

// Encode builds a message without logging
func Encode(kind Kind, params map[string]string) (string, error) {
	return nopEncoder.Encode(kind, params)
}

// MustEncode builds a message and panics on error.
// Use Encoder.Encode for error handling.
func MustEncode(kind Kind, params map[string]string) string {
	msg, err := nopEncoder.Encode(kind, params)
	if err != nil {
		panic(fmt.Sprintf("beny: encode error: %v", err))
	}
	return msg
}
