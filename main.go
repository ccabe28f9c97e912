// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Benystat - Beny EV charger toolkit
//
// A CLI for discovering, monitoring and controlling Beny wallbox chargers
// over their local UDP protocol.

package main

import (
	"os"

	"github.com/Thermoquad/benystat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
