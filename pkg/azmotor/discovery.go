// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package azmotor

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// Attempt records one probed baud rate
type Attempt struct {
	Baud int
	Err  error
}

// Discovery is the result of a baud search. When Found is false Port is nil
// and every port opened during the search has been closed.
type Discovery struct {
	Found    bool
	Baud     int
	Port     transport.Port
	Attempts []Attempt
}

// LineMode is the controller's line setting at a given baud
func LineMode(baud int) transport.Mode {
	return transport.Mode{
		BaudRate:    baud,
		DataBits:    8,
		Parity:      transport.EvenParity,
		StopBits:    transport.OneStopBit,
		ReadTimeout: READ_TIMEOUT,
	}
}

// Discover probes name at each baud in turn until the controller answers.
// Only a cancelled ctx produces an error.
func Discover(ctx context.Context, opener transport.Opener, name string, bauds []int, log logrus.FieldLogger) (Discovery, error) {
	var d Discovery
	probe := ProbeFrame()

	for _, baud := range bauds {
		if err := ctx.Err(); err != nil {
			return d, err
		}

		found, port, err := probeAt(opener, name, baud, probe)
		d.Attempts = append(d.Attempts, Attempt{Baud: baud, Err: err})
		if found {
			d.Found = true
			d.Baud = baud
			d.Port = port
			return d, nil
		}
		if log != nil {
			log.WithFields(logrus.Fields{"port": name, "baud": baud}).WithError(err).Debug("no probe response")
		}
	}
	return d, nil
}

// probeAt returns the open port only when found is true
func probeAt(opener transport.Opener, name string, baud int, probe []byte) (found bool, port transport.Port, err error) {
	port, err = opener(name, LineMode(baud))
	if err != nil {
		return false, nil, err
	}
	defer func() {
		if !found {
			port.Close()
			port = nil
		}
	}()

	if err = port.ResetInputBuffer(); err != nil {
		return false, port, err
	}
	if _, err = port.Write(probe); err != nil {
		return false, port, err
	}
	resp, err := transport.ReadAtMost(port, PROBE_READ_MAX)
	if err != nil {
		return false, port, err
	}
	return len(resp) > 0, port, nil
}
