// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments
//
// Bench - instrument bench device control
//
// A CLI for the serial devices on a spectrometer bench: IMU, rotation
// motor, filter wheel, temperature controller and box sensor.

package main

import (
	"os"

	"github.com/ashutoshjoshi1/SciglobV4.0/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
