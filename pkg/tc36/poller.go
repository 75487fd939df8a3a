// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package tc36

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
)

// DEFAULT_POLL_INTERVAL matches the controller panel's refresh rate
const DEFAULT_POLL_INTERVAL = time.Second

// Reading is the latest polled controller state
type Reading struct {
	Current  float64
	Setpoint float64
	Valid    bool
	Updated  time.Time
}

// Poller periodically reads temperature and setpoint from a session
type Poller struct {
	session  *Session
	notifier *device.Notifier
	interval time.Duration

	// OnReading, if set, receives every successful reading
	OnReading func(Reading)

	mu sync.RWMutex
	r  Reading
}

// NewPoller creates a poller; interval <= 0 selects the default
func NewPoller(s *Session, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DEFAULT_POLL_INTERVAL
	}
	return &Poller{session: s, notifier: s.notifier, interval: interval}
}

// Latest returns a copy of the last reading. Valid is false after a failed
// cycle.
func (p *Poller) Latest() Reading {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.r
}

// Run polls until ctx is done
func (p *Poller) Run(ctx context.Context) error {
	return device.Poll(ctx, p.interval, func(ctx context.Context) {
		p.Poll(ctx)
	})
}

// Poll performs one cycle. Disconnected sessions are skipped quietly.
func (p *Poller) Poll(ctx context.Context) (Reading, error) {
	current, err := p.session.Temperature(ctx)
	if err == nil {
		var sp float64
		sp, err = p.session.Setpoint(ctx)
		if err == nil {
			r := Reading{Current: current, Setpoint: sp, Valid: true, Updated: time.Now()}
			p.mu.Lock()
			p.r = r
			p.mu.Unlock()
			if p.OnReading != nil {
				p.OnReading(r)
			}
			return r, nil
		}
	}

	p.mu.Lock()
	p.r.Valid = false
	r := p.r
	p.mu.Unlock()

	if !errors.Is(err, ErrNotConnected) && ctx.Err() == nil {
		p.notifier.Emit(device.KindTemperature, "Read error: "+err.Error())
	}
	return r, err
}
