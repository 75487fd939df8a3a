// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// ErrNotConnected is returned by operations that need an open port
var ErrNotConnected = errors.New("IMU not connected")

// Session is a continuously streaming IMU connection
type Session struct {
	opener   transport.Opener
	notifier *device.Notifier

	// serialises Connect and Disconnect
	op sync.Mutex

	mu       sync.Mutex
	port     transport.Port
	streamer *Streamer
	stats    *Statistics
	snap     Snapshot

	// OnFrame is handed to every streamer started by Connect
	OnFrame func(Reading)
}

var _ device.Session = (*Session)(nil)

// NewSession creates a disconnected session
func NewSession(opener transport.Opener, notifier *device.Notifier) *Session {
	return &Session{
		opener:   opener,
		notifier: notifier,
		stats:    NewStatistics(),
	}
}

func (s *Session) Kind() device.Kind { return device.KindIMU }

// Connect opens the port at 8N1 with a 1 s read timeout and starts streaming.
// An existing connection is torn down first.
func (s *Session) Connect(ctx context.Context, ep device.Endpoint) device.Outcome {
	s.op.Lock()
	defer s.op.Unlock()
	s.teardown()

	baud := ep.Baud
	if baud == 0 {
		baud = DEFAULT_BAUD
	}
	port, err := s.opener(ep.Port, transport.Mode{
		BaudRate:    baud,
		DataBits:    8,
		Parity:      transport.NoParity,
		StopBits:    transport.OneStopBit,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return s.notifier.Report(device.KindIMU, device.Failed(err, "IMU connection failed: %v", err))
	}

	st := NewStreamer(port, &s.snap, s.stats)
	st.OnFrame = s.OnFrame

	s.mu.Lock()
	s.port = port
	s.streamer = st
	s.mu.Unlock()

	st.Start(context.WithoutCancel(ctx), func(err error) { s.lost(st, err) })
	return s.notifier.Report(device.KindIMU, device.Succeeded("IMU connected on %s@%d", ep.Port, baud))
}

// lost handles a streamer that ended on a port error
func (s *Session) lost(st *Streamer, err error) {
	s.mu.Lock()
	if s.streamer != st {
		s.mu.Unlock()
		return
	}
	port := s.port
	s.port = nil
	s.streamer = nil
	s.mu.Unlock()

	port.Close()
	s.notifier.Emit(device.KindIMU, "IMU read error: "+err.Error())
}

// teardown stops the streamer and closes the port; callers hold s.op
func (s *Session) teardown() bool {
	s.mu.Lock()
	port, st := s.port, s.streamer
	s.port = nil
	s.streamer = nil
	s.mu.Unlock()

	if st == nil {
		return false
	}
	st.Stop()
	if err := port.Close(); err != nil {
		s.notifier.Logger(device.KindIMU).WithError(err).Debug("close")
	}
	return true
}

// Disconnect stops streaming, waits for the goroutine, then closes the port
func (s *Session) Disconnect() error {
	s.op.Lock()
	defer s.op.Unlock()
	if !s.teardown() {
		return ErrNotConnected
	}
	s.notifier.Emit(device.KindIMU, "IMU disconnected")
	return nil
}

// IsConnected reports whether a streamer is running
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamer != nil
}

// Latest returns a copy of the most recent readings
func (s *Session) Latest() Values {
	return s.snap.Latest()
}

// Statistics returns the stream counters, cumulative across connections
func (s *Session) Statistics() *Statistics {
	return s.stats
}
