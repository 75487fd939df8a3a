// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package thp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// Timing defaults
const (
	SETTLE_DELAY          = time.Second
	DEFAULT_POLL_INTERVAL = 3 * time.Second
)

var ErrNotConfigured = errors.New("THP sensor not configured")

// Session polls the sensor. By default every sample opens and closes the
// port; with Reuse set the port stays open between samples.
type Session struct {
	opener   transport.Opener
	notifier *device.Notifier

	// SettleDelay is the wait between opening the port and the request
	SettleDelay time.Duration
	// Timeout bounds one request/response exchange
	Timeout time.Duration
	// Reuse keeps one port open across samples
	Reuse bool

	// mu serialises exchanges and guards the endpoint and port
	mu   sync.Mutex
	ep   device.Endpoint
	set  bool
	port transport.Port

	state  sync.RWMutex
	latest Reading
	ok     bool
}

var _ device.Session = (*Session)(nil)

// NewSession creates an unconfigured session
func NewSession(opener transport.Opener, notifier *device.Notifier) *Session {
	return &Session{
		opener:      opener,
		notifier:    notifier,
		SettleDelay: SETTLE_DELAY,
		Timeout:     DEFAULT_TIMEOUT,
	}
}

func (s *Session) Kind() device.Kind { return device.KindAmbient }

// LineMode is 9600 8N1 with short reads so the exchange deadline is honoured
func LineMode(baud int) transport.Mode {
	if baud == 0 {
		baud = DEFAULT_BAUD
	}
	return transport.Mode{
		BaudRate:    baud,
		DataBits:    8,
		Parity:      transport.NoParity,
		StopBits:    transport.OneStopBit,
		ReadTimeout: LINE_READ_TIMEOUT,
	}
}

// Connect records the endpoint. With Reuse set it also opens the port.
func (s *Session) Connect(ctx context.Context, ep device.Endpoint) device.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.ep = ep
	s.set = true
	s.setOK(false)

	if s.Reuse {
		if _, err := s.openLocked(ctx); err != nil {
			return s.notifier.Report(device.KindAmbient, device.Failed(err, "THP sensor connection failed: %v", err))
		}
	}
	return s.notifier.Report(device.KindAmbient, device.Succeeded("THP sensor on %s", ep.Port))
}

func (s *Session) openLocked(ctx context.Context) (transport.Port, error) {
	port, err := s.opener(s.ep.Port, LineMode(s.ep.Baud))
	if err != nil {
		return nil, err
	}
	if s.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			port.Close()
			return nil, ctx.Err()
		case <-time.After(s.SettleDelay):
		}
	}
	if s.Reuse {
		s.port = port
	}
	return port, nil
}

func (s *Session) closeLocked() {
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
}

// Disconnect forgets the endpoint and closes any held port
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return ErrNotConfigured
	}
	s.closeLocked()
	s.set = false
	s.setOK(false)
	return nil
}

// IsConnected reports whether the last sample succeeded
func (s *Session) IsConnected() bool {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.ok
}

func (s *Session) setOK(ok bool) {
	s.state.Lock()
	s.ok = ok
	s.state.Unlock()
}

// Latest returns the last good reading; ok is false until one arrives
func (s *Session) Latest() (Reading, bool) {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.latest, !s.latest.Time.IsZero()
}

// Sample performs one exchange. On failure the previous reading is kept.
func (s *Session) Sample(ctx context.Context) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return Reading{}, ErrNotConfigured
	}

	port := s.port
	if port == nil {
		var err error
		if port, err = s.openLocked(ctx); err != nil {
			s.setOK(false)
			return Reading{}, fmt.Errorf("%w: open: %v", ErrNoReading, err)
		}
	}

	r, err := Read(ctx, port, s.Timeout)
	if !s.Reuse {
		port.Close()
	} else if err != nil && !errors.Is(err, ErrMalformed) && !errors.Is(err, ErrTimeout) {
		// transport failure; reopen next time
		s.closeLocked()
	}

	if err != nil {
		s.setOK(false)
		return Reading{}, err
	}
	s.state.Lock()
	s.latest = r
	s.ok = true
	s.state.Unlock()
	return r, nil
}
