// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import "strings"

// ChargerType tells how many phases a charger reports values for
type ChargerType string

// Charger type values
const (
	ChargerTypeUnknown     ChargerType = ""
	ChargerTypeSinglePhase ChargerType = "1P"
	ChargerTypeThreePhase  ChargerType = "3P"
)

// ValuesKind returns the SendValues kind matching the charger type
func (t ChargerType) ValuesKind() Kind {
	if t == ChargerTypeThreePhase {
		return KindSendValues3P
	}
	return KindSendValues1P
}

// Known charger models as reported by SendModel
var singlePhaseModels = []string{
	"BCP-A1-L",
	"BCP--A2-L",
	"BCP--A1D-L",
	"BCP--A2D-L",
	"BCP--B1-L",
	"BCP--B2-L",
	"BCP--B1D-L",
	"BCP--B2D-L",
	"BCP--A1-L-E",
	"BCP--A2-L-E",
	"BCP--A1D-L-E",
	"BCP--A2D-L-E",
	"BCP--B1-L-E",
	"BCP--B2-L-E",
	"BCP--B1D-L-E",
	"BCP--B2D-L-E",
	"BCP--A1-L-16",
	"BCP--A2-L-16",
	"BCP--A1D-L-16",
	"BCP--A2D-L-16",
	"BCP--B1-L-16",
	"BCP--B2-L-16",
	"BCP--B1D-L-16",
	"BCP--B2D-L-16",
	"BCP--A1-L-E-16",
	"BCP--A2-L-E-16",
	"BCP--A1D-L-E-16",
	"BCP--A2D-L-E-16",
	"BCP--B1-L-E-16",
	"BCP--B2-L-E-16",
	"BCP--B1D-L-E-16",
	"BCP--B2D-L-E-16",
	"BCP-A1S-L",
	"BCP-A2S-L",
	"BCP-A1N-L",
	"BCP-A2N-L",
	"BCP-B1S-L",
	"BCP-B2S-L",
	"BCP-B1N-L",
	"BCP-B2N-L",
	"BCP-A2N-P",
	"BCP-B2N-P",
	"BCP-A1S-L-E",
	"BCP-A2S-L-E",
	"BCP-A1N-L-E",
	"BCP-A2N-L-E",
	"BCP-B1S-L-E",
	"BCP-B2S-L-E",
	"BCP-B1N-L-E",
	"BCP-B2N-L-E",
	"BCP-A1S-L-16",
	"BCP-A2S-L-16",
	"BCP-A1N-L-16",
	"BCP-A2N-L-16",
	"BCP-B1S-L-16",
	"BCP-B2S-L-16",
	"BCP-B1N-L-16",
	"BCP-B2N-L-16",
	"BCP-A1S-L-E-16",
	"BCP-A2S-L-E-16",
	"BCP-A1N-L-E-16",
	"BCP-A2N-L-E-16",
	"BCP-B1S-L-E-16",
	"BCP-B2S-L-E-16",
	"BCP-B1N-L-E-16",
	"BCP-B2N-L-E-16",
	"BCP-A2-L",
}

var threePhaseModels = []string{
	"BCP-AT2N-P",
	"BCP-BT2N-P",
	"BCP-AT1S-L",
	"BCP-AT2S-L",
	"BCP-BT1S-L",
	"BCP-BT2S-L",
	"BCP-AT1N-L",
	"BCP-AT2N-L",
	"BCP-BT1N-L",
	"BCP-BT2N-L",
	"BCP-AT1S-L-16",
	"BCP-AT2S-L-16",
	"BCP-BT1S-L-16",
	"BCP-BT2S-L-16",
	"BCP-AT1N-L-16",
	"BCP-AT2N-L-16",
	"BCP-BT1N-L-16",
	"BCP-BT2N-L-16",
}

var dlbModels = []string{
	"BCP-A1N-L",
	"BCP-A2N-L",
	"BCP-B1N-L",
	"BCP-B2N-L",
	"BCP-A2N-P",
	"BCP-B2N-P",
	"BCP-AT2N-P",
	"BCP-BT2N-P",
	"BCP-A1N-L-E",
	"BCP-A2N-L-E",
	"BCP-B1N-L-E",
	"BCP-B2N-L-E",
	"BCP-A1N-L-16",
	"BCP-A2N-L-16",
	"BCP-B1N-L-16",
	"BCP-B2N-L-16",
	"BCP-A1N-L-E-16",
	"BCP-A2N-L-E-16",
	"BCP-B1N-L-E-16",
	"BCP-B2N-L-E-16",
	"BCP-AT1N-L",
	"BCP-AT2N-L",
	"BCP-BT1N-L",
	"BCP-BT2N-L",
	"BCP-AT1N-L-16",
	"BCP-AT2N-L-16",
	"BCP-BT1N-L-16",
	"BCP-BT2N-L-16",
	"BCP-A2-L",
}

var (
	modelTypes = make(map[string]ChargerType)
	modelDLB   = make(map[string]bool)
)

func init() {
	for _, m := range singlePhaseModels {
		modelTypes[m] = ChargerTypeSinglePhase
	}
	for _, m := range threePhaseModels {
		modelTypes[m] = ChargerTypeThreePhase
	}
	for _, m := range dlbModels {
		modelDLB[m] = true
	}
}

// normalizeModel strips padding the charger appends to the model string
func normalizeModel(model string) string {
	return strings.ToUpper(strings.TrimSpace(strings.TrimRight(model, "\x00")))
}

// ChargerTypeOf classifies a model as single or three phase
func ChargerTypeOf(model string) ChargerType {
	return modelTypes[normalizeModel(model)]
}

// SupportsDLB reports whether a model has dynamic load balancing
func SupportsDLB(model string) bool {
	return modelDLB[normalizeModel(model)]
}

// KnownModel reports whether the model appears in any model list
func KnownModel(model string) bool {
	_, ok := modelTypes[normalizeModel(model)]
	return ok
}
