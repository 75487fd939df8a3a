// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialPort wraps a local serial port
type SerialPort struct {
	port serial.Port
	name string
	mode Mode
}

func (s *SerialPort) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
			return n, ErrClosed
		}
	}
	return n, err
}

func (s *SerialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialPort) Close() error {
	return s.port.Close()
}

// ResetInputBuffer discards any bytes received but not yet read
func (s *SerialPort) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

// SetReadTimeout bounds how long Read waits for the first byte
func (s *SerialPort) SetReadTimeout(t time.Duration) error {
	return s.port.SetReadTimeout(t)
}

func (s *SerialPort) String() string {
	return fmt.Sprintf("%s @ %s", s.name, s.mode)
}

// OpenSerial opens a local serial port and applies the mode's read timeout
func OpenSerial(name string, mode Mode) (Port, error) {
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	serialMode := &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		Parity:   serialParity(mode.Parity),
		StopBits: serial.OneStopBit,
	}
	if mode.StopBits == TwoStopBits {
		serialMode.StopBits = serial.TwoStopBits
	}

	port, err := serial.Open(name, serialMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	if mode.ReadTimeout > 0 {
		if err := port.SetReadTimeout(mode.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
		}
	}

	return &SerialPort{port: port, name: name, mode: mode}, nil
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

func serialParity(p Parity) serial.Parity {
	switch p {
	case OddParity:
		return serial.OddParity
	case EvenParity:
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}
