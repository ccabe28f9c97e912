// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import "testing"

func TestChargerTypeOf(t *testing.T) {
	tests := []struct {
		model    string
		expected ChargerType
	}{
		{model: "BCP-A2N-L", expected: ChargerTypeSinglePhase},
		{model: "bcp-a2n-l", expected: ChargerTypeSinglePhase},
		{model: "BCP-A2N-L\x00\x00", expected: ChargerTypeSinglePhase},
		{model: threePhaseModels[0], expected: ChargerTypeThreePhase},
		{model: "XYZ-1000", expected: ChargerTypeUnknown},
	}

	for _, tt := range tests {
		if got := ChargerTypeOf(tt.model); got != tt.expected {
			t.Errorf("ChargerTypeOf(%q) = %q, expected %q", tt.model, got, tt.expected)
		}
	}
}

func TestChargerType_ValuesKind(t *testing.T) {
	if k := ChargerTypeThreePhase.ValuesKind(); k != KindSendValues3P {
		t.Errorf("expected SendValues3P, got %s", k)
	}
	if k := ChargerTypeSinglePhase.ValuesKind(); k != KindSendValues1P {
		t.Errorf("expected SendValues1P, got %s", k)
	}
	if k := ChargerTypeUnknown.ValuesKind(); k != KindSendValues1P {
		t.Errorf("unknown chargers should fall back to SendValues1P, got %s", k)
	}
}

func TestModelLists(t *testing.T) {
	for _, m := range singlePhaseModels {
		for _, n := range threePhaseModels {
			if m == n {
				t.Errorf("%s listed as both single and three phase", m)
			}
		}
	}
	for _, m := range dlbModels {
		if !SupportsDLB(m) {
			t.Errorf("%s should support DLB", m)
		}
	}
	if SupportsDLB("XYZ-1000") || KnownModel("XYZ-1000") {
		t.Error("unknown model should not be known or DLB capable")
	}
}
