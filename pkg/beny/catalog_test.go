// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Catalog Consistency Tests
// ============================================================

func TestCatalog_EveryKindDefined(t *testing.T) {
	for k := KindAuto + 1; k < kindCount; k++ {
		def := Lookup(k)
		if def == nil {
			t.Errorf("kind %d has no definition", int(k))
			continue
		}
		if def.Kind != k {
			t.Errorf("%s: Kind field is %d, expected %d", def.Name, int(def.Kind), int(k))
		}
		if def.Name == "" || def.Description == "" {
			t.Errorf("kind %d: missing name or description", int(k))
		}
	}
}

// Substituting every placeholder with a value of its declared width must
// produce a message whose length matches the header length, with every
// placeholder starting exactly at its field offset.
func TestCatalog_TemplateLayout(t *testing.T) {
	for _, k := range Kinds(Outbound) {
		def := Lookup(k)
		t.Run(def.Name, func(t *testing.T) {
			if !strings.HasSuffix(def.Template, checksumToken) {
				t.Fatalf("template does not end with %s", checksumToken)
			}

			msg := def.Template
			for _, f := range def.Fields {
				token := "[" + f.Name + "]"
				pos := strings.Index(msg, token)
				if pos != f.Range.Start {
					t.Errorf("field %s: placeholder at %d, range starts at %d", f.Name, pos, f.Range.Start)
					continue
				}
				msg = strings.Replace(msg, token, strings.Repeat("0", f.Range.Width()), 1)
			}
			msg = strings.Replace(msg, checksumToken, "00", 1)

			if leftover := Placeholders(msg); len(leftover) > 0 {
				t.Fatalf("placeholders without a field: %v", leftover)
			}

			length, err := ByteValueAt(msg, Span(6, 10))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(msg) != length*2 {
				t.Errorf("message is %d chars, header declares %d bytes", len(msg), length)
			}
		})
	}
}

func TestCatalog_InboundHaveNoTemplate(t *testing.T) {
	for _, k := range Kinds(Inbound) {
		if def := Lookup(k); def.Template != "" {
			t.Errorf("%s: inbound kind should not carry a template", def.Name)
		}
	}
}

func TestKinds_Directions(t *testing.T) {
	if n := len(Kinds(Outbound)); n != 11 {
		t.Errorf("expected 11 outbound kinds, got %d", n)
	}
	if n := len(Kinds(Inbound)); n != 7 {
		t.Errorf("expected 7 inbound kinds, got %d", n)
	}
}

func TestLookup_OutOfRange(t *testing.T) {
	for _, k := range []Kind{KindAuto, kindCount, Kind(-1), Kind(99)} {
		if def := Lookup(k); def != nil {
			t.Errorf("Lookup(%d) should be nil, got %s", int(k), def.Name)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		name     string
		expected Kind
	}{
		{name: "SetMaxCurrent", expected: KindSetMaxCurrent},
		{name: "setmaxcurrent", expected: KindSetMaxCurrent},
		{name: "SENDVALUES3P", expected: KindSendValues3P},
		{name: "Handshake", expected: KindHandshake},
	}
	for _, tt := range tests {
		k, err := ParseKind(tt.name)
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error: %v", tt.name, err)
			continue
		}
		if k != tt.expected {
			t.Errorf("ParseKind(%q) = %s, expected %s", tt.name, k, tt.expected)
		}
	}

	if _, err := ParseKind("Bogus"); !errors.Is(err, ErrUnknownMessageType) {
		t.Errorf("expected ErrUnknownMessageType, got %v", err)
	}
}

func TestKind_String(t *testing.T) {
	if s := KindSendDLB.String(); s != "SendDLB" {
		t.Errorf("expected SendDLB, got %s", s)
	}
	if s := KindAuto.String(); s != "Auto" {
		t.Errorf("expected Auto, got %s", s)
	}
	if s := Kind(42).String(); s != "Kind(42)" {
		t.Errorf("expected Kind(42), got %s", s)
	}
}

// ============================================================
// Detection Tests
// ============================================================

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected Kind
	}{
		{name: "handshake", data: "55aa0300100000bc614ec0a8010a0d0502", expected: KindHandshake},
		{name: "access denied", data: "55aa12000b001c", expected: KindAccessDenied},
		{name: "values 1P", data: "55aa11001a70001000e60e1004d282060300071e160000200a74", expected: KindSendValues1P},
		{name: "values 3P", data: "55aa11001f700a0b0c00e600e700e82b5c00647d01000000000000001000ee", expected: KindSendValues3P},
		{name: "model", data: "55aa110010044243502d41324e2d4c60", expected: KindSendModel},
		{name: "settings", data: "55aa110015710000000000000000007f081e10004b", expected: KindSendSettings},
		{name: "dlb response", data: "55aa11000e7b0000006400c8012cfffff0", expected: KindSendDLB},
		{name: "dlb message type", data: "55aa7b000e7b0000000000000000800083", expected: KindSendDLB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := DetectKind(tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if k != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, k)
			}
		})
	}
}

func TestDetectKind_Unknown(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		malformed bool
	}{
		{name: "unknown message type", data: "55aa99000b0000"},
		{name: "unknown request type", data: "55aa11000b5500"},
		{name: "too short", data: "55aa", malformed: true},
		{name: "single byte", data: "00", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DetectKind(tt.data)
			if !errors.Is(err, ErrUnknownMessageType) {
				t.Errorf("expected ErrUnknownMessageType, got %v", err)
			}
			if errors.Is(err, ErrMalformedHex) != tt.malformed {
				t.Errorf("errors.Is(ErrMalformedHex) = %v, want %v (%v)", !tt.malformed, tt.malformed, err)
			}
		})
	}
}
