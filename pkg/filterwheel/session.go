// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package filterwheel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// Protocol constants
const (
	QUERY         = "?"
	RESET_HOME    = "F1r"
	TERMINATOR    = "\r"
	DEFAULT_BAUD  = 4800
	READ_TIMEOUT  = time.Second
	SETTLE_DELAY  = time.Second
	MAX_LINE_SIZE = 256
)

var (
	ErrNotConnected   = errors.New("filter wheel not connected")
	ErrNoResponse     = errors.New("no response from filter wheel")
	ErrInvalidCommand = errors.New("invalid filter wheel command")
)

// Session owns the filter wheel port. Commands are serialised.
type Session struct {
	opener   transport.Opener
	notifier *device.Notifier

	// SettleDelay is how long to wait after a move before querying
	SettleDelay time.Duration
	// HomeOnConnect sends RESET_HOME after a successful connect
	HomeOnConnect bool

	mu       sync.Mutex
	port     transport.Port
	position int
	known    bool
}

var _ device.Commander = (*Session)(nil)

// NewSession creates a disconnected session that homes on connect
func NewSession(opener transport.Opener, notifier *device.Notifier) *Session {
	return &Session{
		opener:        opener,
		notifier:      notifier,
		SettleDelay:   SETTLE_DELAY,
		HomeOnConnect: true,
	}
}

func (s *Session) Kind() device.Kind { return device.KindFilterWheel }

// LineMode is the wheel's fixed line setting
func LineMode(baud int) transport.Mode {
	if baud == 0 {
		baud = DEFAULT_BAUD
	}
	return transport.Mode{
		BaudRate:    baud,
		DataBits:    8,
		Parity:      transport.NoParity,
		StopBits:    transport.OneStopBit,
		ReadTimeout: READ_TIMEOUT,
	}
}

// Connect opens the port and, when HomeOnConnect is set, resets the wheel
// to position 1. The returned outcome is the connect result; the homing
// result is emitted separately.
func (s *Session) Connect(ctx context.Context, ep device.Endpoint) device.Outcome {
	s.mu.Lock()
	s.closeLocked()
	port, err := s.opener(ep.Port, LineMode(ep.Baud))
	if err != nil {
		s.mu.Unlock()
		return s.notifier.Report(device.KindFilterWheel, device.Failed(err, "Failed to open %s: %v", ep.Port, err))
	}
	s.port = port
	s.mu.Unlock()

	out := s.notifier.Report(device.KindFilterWheel, device.Succeeded("Filter wheel connected on %s", ep.Port))
	if s.HomeOnConnect {
		s.Send(ctx, RESET_HOME)
	}
	return out
}

func (s *Session) closeLocked() bool {
	if s.port == nil {
		return false
	}
	if err := s.port.Close(); err != nil {
		s.notifier.Logger(device.KindFilterWheel).WithError(err).Debug("close")
	}
	s.port = nil
	s.known = false
	return true
}

// Disconnect closes the port
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closeLocked() {
		return ErrNotConnected
	}
	s.notifier.Emit(device.KindFilterWheel, "Filter wheel disconnected")
	return nil
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// Position returns the last known wheel position
func (s *Session) Position() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, s.known
}

// Exchange sends cmd and, unless cmd is a query, waits SettleDelay and
// queries the position. A transport error closes the port.
func (s *Session) Exchange(ctx context.Context, cmd string) (Result, error) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || strings.ContainsAny(cmd, "\r\n") {
		return Result{}, ErrInvalidCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return Result{}, ErrNotConnected
	}

	r, err := s.exchangeLocked(ctx, cmd)
	if err != nil {
		if ctx.Err() == nil {
			s.closeLocked()
		}
		return r, err
	}
	s.track(cmd, r)
	return r, nil
}

func (s *Session) exchangeLocked(ctx context.Context, cmd string) (Result, error) {
	if err := s.port.ResetInputBuffer(); err != nil {
		return Result{}, err
	}
	if _, err := s.port.Write([]byte(cmd + TERMINATOR)); err != nil {
		return Result{}, err
	}

	if cmd != QUERY {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.SettleDelay):
		}
		if err := s.port.ResetInputBuffer(); err != nil {
			return Result{}, err
		}
		if _, err := s.port.Write([]byte(QUERY + TERMINATOR)); err != nil {
			return Result{}, err
		}
	}

	line, err := transport.ReadUntil(s.port, '\n', MAX_LINE_SIZE)
	if err != nil && !errors.Is(err, transport.ErrOverflow) {
		return Result{}, err
	}
	return ParseResponse(string(line)), nil
}

// track follows the wheel position: a home reset is position 1, a direct
// "F1<d>" move is position d, anything else trusts the reply
func (s *Session) track(cmd string, r Result) {
	switch {
	case cmd == RESET_HOME:
		s.position, s.known = 1, true
	case len(cmd) == 3 && strings.HasPrefix(cmd, "F1") && cmd[2] >= '0' && cmd[2] <= '9':
		s.position, s.known = int(cmd[2]-'0'), true
	case r.Kind == ResultPosition:
		s.position, s.known = r.Position, true
	}
}

// Send runs one command and reports the outcome
func (s *Session) Send(ctx context.Context, cmd string) device.Outcome {
	r, err := s.Exchange(ctx, cmd)
	switch {
	case errors.Is(err, ErrNotConnected):
		return s.notifier.Report(device.KindFilterWheel, device.Failed(err, "Filter wheel not connected"))
	case errors.Is(err, ErrInvalidCommand):
		return s.notifier.Report(device.KindFilterWheel, device.Failed(err, "Invalid filter wheel command: %q", cmd))
	case err != nil:
		return s.notifier.Report(device.KindFilterWheel, device.Failed(err, "Serial error: %v", err))
	}

	msg := Message(strings.TrimSpace(cmd), r)
	if r.Kind == ResultNoResponse {
		return s.notifier.Report(device.KindFilterWheel, device.Failed(ErrNoResponse, "%s", msg))
	}
	return s.notifier.Report(device.KindFilterWheel, device.Succeeded("%s", msg))
}

// Goto moves to a numbered position with the wheel's "F1<n>" command
func (s *Session) Goto(ctx context.Context, position int) device.Outcome {
	if position < 1 || position > 9 {
		err := fmt.Errorf("%w: position %d", ErrInvalidCommand, position)
		return s.notifier.Report(device.KindFilterWheel, device.Failed(err, "Invalid filter position: %d", position))
	}
	return s.Send(ctx, fmt.Sprintf("F1%d", position))
}
