// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package thp

import (
	"context"
	"errors"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
)

// Poller samples a session on a fixed interval
type Poller struct {
	session  *Session
	interval time.Duration

	// OnReading, if set, receives every successful reading
	OnReading func(Reading)
}

// NewPoller creates a poller; interval <= 0 selects the default
func NewPoller(s *Session, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DEFAULT_POLL_INTERVAL
	}
	return &Poller{session: s, interval: interval}
}

// Run polls until ctx is done
func (p *Poller) Run(ctx context.Context) error {
	return device.Poll(ctx, p.interval, func(ctx context.Context) {
		p.Poll(ctx)
	})
}

// Poll runs one cycle and reports a failure on the event stream
func (p *Poller) Poll(ctx context.Context) (Reading, error) {
	r, err := p.session.Sample(ctx)
	switch {
	case err == nil:
		if p.OnReading != nil {
			p.OnReading(r)
		}
	case errors.Is(err, ErrNotConfigured), ctx.Err() != nil:
	default:
		n := p.session.notifier
		n.Logger(device.KindAmbient).WithError(err).Debug("sample failed")
		n.Emit(device.KindAmbient, "THP sensor read failed.")
	}
	return r, err
}
