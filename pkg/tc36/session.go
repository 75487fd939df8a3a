// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package tc36

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// Accepted setpoint range in °C
const (
	MIN_SETPOINT = -50.0
	MAX_SETPOINT = 150.0
	DEFAULT_BAUD = 9600
)

var (
	ErrNotConnected   = errors.New("temperature controller not connected")
	ErrInvalidSetting = errors.New("invalid setpoint")
)

// Session owns the controller connection
type Session struct {
	opener   transport.Opener
	notifier *device.Notifier

	// CharDelay overrides the inter-character delay when >= 0
	CharDelay time.Duration

	mu   sync.Mutex
	port transport.Port
	ctrl *Controller
}

var _ device.Commander = (*Session)(nil)

// NewSession creates a disconnected session
func NewSession(opener transport.Opener, notifier *device.Notifier) *Session {
	return &Session{opener: opener, notifier: notifier, CharDelay: -1}
}

func (s *Session) Kind() device.Kind { return device.KindTemperature }

// LineMode is 8N1 with a 1 s read timeout
func LineMode(baud int) transport.Mode {
	if baud == 0 {
		baud = DEFAULT_BAUD
	}
	return transport.Mode{
		BaudRate:    baud,
		DataBits:    8,
		Parity:      transport.NoParity,
		StopBits:    transport.OneStopBit,
		ReadTimeout: time.Second,
	}
}

// Connect opens the port, then selects computer-set mode and switches the
// output on. If that initialisation fails the port stays open and the
// outcome reports the failure.
func (s *Session) Connect(ctx context.Context, ep device.Endpoint) device.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()

	port, err := s.opener(ep.Port, LineMode(ep.Baud))
	if err != nil {
		return s.notifier.Report(device.KindTemperature, device.Failed(err, "TempController connection failed: %v", err))
	}
	s.port = port
	s.ctrl = NewController(port, s.CharDelay)

	if err := s.ctrl.EnableComputerSetpoint(ctx); err != nil {
		return s.notifier.Report(device.KindTemperature, device.Failed(err, "TC init failed: %v", err))
	}
	if err := s.ctrl.SetPower(ctx, true); err != nil {
		return s.notifier.Report(device.KindTemperature, device.Failed(err, "TC init failed: %v", err))
	}
	return s.notifier.Report(device.KindTemperature, device.Succeeded("TempController connected on %s", ep.Port))
}

func (s *Session) closeLocked() bool {
	if s.port == nil {
		return false
	}
	if err := s.port.Close(); err != nil {
		s.notifier.Logger(device.KindTemperature).WithError(err).Debug("close")
	}
	s.port = nil
	s.ctrl = nil
	return true
}

// Disconnect closes the port without changing the controller's output
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closeLocked() {
		return ErrNotConnected
	}
	s.notifier.Emit(device.KindTemperature, "TempController disconnected")
	return nil
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// do runs fn with the controller held. A closed port ends the session.
func (s *Session) do(fn func(c *Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return ErrNotConnected
	}
	err := fn(s.ctrl)
	if errors.Is(err, transport.ErrClosed) {
		s.closeLocked()
	}
	return err
}

// Temperature reads the current temperature in °C
func (s *Session) Temperature(ctx context.Context) (t float64, err error) {
	err = s.do(func(c *Controller) error {
		t, err = c.Temperature(ctx)
		return err
	})
	return t, err
}

// Setpoint reads the effective setpoint in °C
func (s *Session) Setpoint(ctx context.Context) (sp float64, err error) {
	err = s.do(func(c *Controller) error {
		sp, err = c.Setpoint(ctx)
		return err
	})
	return sp, err
}

// ValidateSetpoint rejects values the controller should never be sent
func ValidateSetpoint(celsius float64) error {
	if math.IsNaN(celsius) || celsius < MIN_SETPOINT || celsius > MAX_SETPOINT {
		return fmt.Errorf("%w: %v outside %.0f..%.0f °C", ErrInvalidSetting, celsius, MIN_SETPOINT, MAX_SETPOINT)
	}
	return nil
}

// SetSetpoint validates and writes a new setpoint
func (s *Session) SetSetpoint(ctx context.Context, celsius float64) device.Outcome {
	if err := ValidateSetpoint(celsius); err != nil {
		return s.notifier.Report(device.KindTemperature, device.Failed(err, "Invalid setpoint"))
	}
	err := s.do(func(c *Controller) error { return c.SetSetpoint(ctx, celsius) })
	if errors.Is(err, ErrNotConnected) {
		return s.notifier.Report(device.KindTemperature, device.Failed(err, "TempController not connected"))
	}
	if err != nil {
		return s.notifier.Report(device.KindTemperature, device.Failed(err, "Set fail: %v", err))
	}
	return s.notifier.Report(device.KindTemperature, device.Succeeded("SP=%.1f°C", celsius))
}

// Send parses a setpoint typed by the user
func (s *Session) Send(ctx context.Context, command string) device.Outcome {
	celsius, err := strconv.ParseFloat(strings.TrimSpace(command), 64)
	if err != nil {
		return s.notifier.Report(device.KindTemperature, device.Failed(ErrInvalidSetting, "Invalid setpoint"))
	}
	return s.SetSetpoint(ctx, celsius)
}

// SetPower switches the controller output
func (s *Session) SetPower(ctx context.Context, on bool) device.Outcome {
	state := "off"
	if on {
		state = "on"
	}
	err := s.do(func(c *Controller) error { return c.SetPower(ctx, on) })
	if errors.Is(err, ErrNotConnected) {
		return s.notifier.Report(device.KindTemperature, device.Failed(err, "TempController not connected"))
	}
	if err != nil {
		return s.notifier.Report(device.KindTemperature, device.Failed(err, "Power %s failed: %v", state, err))
	}
	return s.notifier.Report(device.KindTemperature, device.Succeeded("TC output %s", state))
}
