// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package transport provides the byte-stream ports the device sessions talk over:
// local serial ports and serial lines exposed by a websocket bridge.
package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Port is a duplex byte stream owned by exactly one device session.
// A Read that times out returns (0, nil).
type Port interface {
	io.Reader
	io.Writer
	io.Closer
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// Parity selects the serial parity bit
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

func (p Parity) String() string {
	switch p {
	case OddParity:
		return "O"
	case EvenParity:
		return "E"
	default:
		return "N"
	}
}

// StopBits selects the number of stop bits
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// Mode is the line configuration a port is opened with
type Mode struct {
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	ReadTimeout time.Duration
}

// Framing renders data bits, parity and stop bits, e.g. "8E1"
func (m Mode) Framing() string {
	stop := 1
	if m.StopBits == TwoStopBits {
		stop = 2
	}
	return fmt.Sprintf("%d%s%d", m.DataBits, m.Parity, stop)
}

func (m Mode) String() string {
	return fmt.Sprintf("%d %s", m.BaudRate, m.Framing())
}

// Opener opens a named port with the given mode
type Opener func(name string, mode Mode) (Port, error)

var (
	// ErrClosed is returned when reading from or writing to a closed port
	ErrClosed = errors.New("port closed")
	// ErrOverflow is returned when a delimited read exceeds its size bound
	ErrOverflow = errors.New("response exceeds buffer limit")
)

// Dialer opens either a local serial port or a websocket serial bridge,
// depending on whether the port name is a ws:// or wss:// URL.
type Dialer struct {
	Username         string
	Password         string
	SkipTLSVerify    bool
	HandshakeTimeout time.Duration
}

// Open implements Opener
func (d *Dialer) Open(name string, mode Mode) (Port, error) {
	if IsBridgeURL(name) {
		return d.DialBridge(name, mode)
	}
	return OpenSerial(name, mode)
}

// Open opens name with a zero Dialer (no bridge authentication)
func Open(name string, mode Mode) (Port, error) {
	return (&Dialer{}).Open(name, mode)
}

// IsBridgeURL reports whether name addresses a websocket serial bridge
func IsBridgeURL(name string) bool {
	return strings.HasPrefix(name, "ws://") || strings.HasPrefix(name, "wss://")
}

// ReadAtMost reads until n bytes arrive or a read times out.
// It returns whatever was received; an empty result means nothing arrived.
func ReadAtMost(p Port, n int) ([]byte, error) {
	buf := make([]byte, n)
	total := 0
	for total < n {
		k, err := p.Read(buf[total:])
		total += k
		if err != nil {
			return buf[:total], err
		}
		if k == 0 {
			break
		}
	}
	return buf[:total], nil
}

// ReadUntil reads one byte at a time until delim is seen, a read times out,
// or max bytes have been collected (ErrOverflow). The delimiter is included.
func ReadUntil(p Port, delim byte, max int) ([]byte, error) {
	out := make([]byte, 0, 32)
	one := make([]byte, 1)
	for {
		k, err := p.Read(one)
		if err != nil {
			return out, err
		}
		if k == 0 {
			return out, nil
		}
		out = append(out, one[0])
		if one[0] == delim {
			return out, nil
		}
		if len(out) >= max {
			return out, ErrOverflow
		}
	}
}
