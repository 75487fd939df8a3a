// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package azmotor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

var (
	ErrNotConnected = errors.New("motor not connected")
	ErrNoAck        = errors.New("no ACK from motor")
	ErrNotFound     = errors.New("no response from motor")
)

// Session is a connection to one motor controller. Exchanges are serialised.
type Session struct {
	opener   transport.Opener
	notifier *device.Notifier

	// Bauds overrides the discovery candidates when non-empty
	Bauds []int

	mu   sync.Mutex
	port transport.Port
	name string
	baud int
}

var _ device.Commander = (*Session)(nil)

// NewSession creates a disconnected session
func NewSession(opener transport.Opener, notifier *device.Notifier) *Session {
	return &Session{opener: opener, notifier: notifier}
}

func (s *Session) Kind() device.Kind { return device.KindMotor }

// Connect finds the controller's baud rate on ep.Port. A non-zero ep.Baud
// restricts the search to that rate.
func (s *Session) Connect(ctx context.Context, ep device.Endpoint) device.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()

	bauds := BaudRates
	if len(s.Bauds) > 0 {
		bauds = s.Bauds
	}
	if ep.Baud != 0 {
		bauds = []int{ep.Baud}
	}

	d, err := Discover(ctx, s.opener, ep.Port, bauds, s.notifier.Logger(device.KindMotor))
	if err != nil {
		return s.notifier.Report(device.KindMotor, device.Failed(err, "Motor connection failed: %v", err))
	}
	if !d.Found {
		return s.notifier.Report(device.KindMotor, device.Failed(ErrNotFound, "No response from motor on %s.", ep.Port))
	}

	s.port = d.Port
	s.name = ep.Port
	s.baud = d.Baud
	return s.notifier.Report(device.KindMotor, device.Succeeded("Motor connected on %s at %d baud.", ep.Port, d.Baud))
}

func (s *Session) closeLocked() bool {
	if s.port == nil {
		return false
	}
	if err := s.port.Close(); err != nil {
		s.notifier.Logger(device.KindMotor).WithError(err).Debug("close")
	}
	s.port = nil
	s.baud = 0
	return true
}

// Disconnect closes the port
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closeLocked() {
		return ErrNotConnected
	}
	s.notifier.Emit(device.KindMotor, "Motor disconnected")
	return nil
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// Baud returns the discovered baud rate, or 0 when disconnected
func (s *Session) Baud() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baud
}

// Move commands an absolute move. Angles outside the int32 range are
// clamped. A transport error fails the move but keeps the connection.
func (s *Session) Move(ctx context.Context, angle int64) device.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return s.notifier.Report(device.KindMotor, device.Failed(ErrNotConnected, "Motor not connected"))
	}
	if err := ctx.Err(); err != nil {
		return s.notifier.Report(device.KindMotor, device.Failed(err, "Motor move failed: %v", err))
	}

	resp, err := s.exchange(MoveFrame(angle), MOVE_READ_MAX)
	if err != nil {
		return s.notifier.Report(device.KindMotor, device.Failed(err, "Motor move failed: %v", err))
	}
	if !IsMoveAck(resp) {
		return s.notifier.Report(device.KindMotor, device.Failed(ErrNoAck, "No ACK from motor"))
	}
	return s.notifier.Report(device.KindMotor, device.Succeeded("Motor moved to %d°", ClampAngle(angle)))
}

func (s *Session) exchange(frame []byte, max int) ([]byte, error) {
	if err := s.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("reset input: %w", err)
	}
	if _, err := s.port.Write(frame); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := transport.ReadAtMost(s.port, max)
	if err != nil {
		return resp, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// MoveText parses a user-entered angle and moves to it. Text that is not
// an integer is rejected without touching the port.
func (s *Session) MoveText(ctx context.Context, text string) device.Outcome {
	angle, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return s.notifier.Report(device.KindMotor, device.Failed(err, "Invalid angle: %q", text))
	}
	return s.Move(ctx, angle)
}

// Send implements device.Commander; the command is an angle
func (s *Session) Send(ctx context.Context, command string) device.Outcome {
	return s.MoveText(ctx, command)
}

// ReadRegisters reads holding registers through a full Modbus client
// exchange, with response CRC and function-code checks
func (s *Session) ReadRegisters(address, quantity uint16) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, ErrNotConnected
	}
	return newClient(s.port).ReadHoldingRegisters(address, quantity)
}

// OperationData reads the first two direct-operation registers, the same
// block discovery probes
func (s *Session) OperationData() (uint32, error) {
	data, err := s.ReadRegisters(REG_DIRECT_OPERATION, PROBE_REGISTERS)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("operation data: %d bytes", len(data))
	}
	return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]), nil
}
