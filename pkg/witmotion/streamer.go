// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

import (
	"context"
	"errors"
	"sync"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// Streamer owns the acquisition goroutine for one connection. It reads the
// port a byte at a time, decodes frames and applies them to a Snapshot.
type Streamer struct {
	port  transport.Port
	snap  *Snapshot
	stats *Statistics
	dec   *Decoder

	// OnFrame, if set, is called from the streamer goroutine for every
	// decoded reading
	OnFrame func(Reading)

	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// NewStreamer creates a streamer; stats may be nil
func NewStreamer(port transport.Port, snap *Snapshot, stats *Statistics) *Streamer {
	if stats == nil {
		stats = NewStatistics()
	}
	return &Streamer{
		port:  port,
		snap:  snap,
		stats: stats,
		dec:   NewDecoder(),
		done:  make(chan struct{}),
	}
}

// Start launches the goroutine. onExit, if non-nil, runs on the goroutine
// when the loop ends because of a port error (not after Stop or ctx cancel).
func (s *Streamer) Start(ctx context.Context, onExit func(error)) {
	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.done)
		err := s.run(ctx)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		if err != nil && ctx.Err() == nil && onExit != nil {
			onExit(err)
		}
	}()
}

// Stop cancels the loop and waits for it to finish. The current read
// completes first, so Stop may take up to one read timeout.
func (s *Streamer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
	return s.Err()
}

// Done is closed once the goroutine has exited
func (s *Streamer) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the loop, if any
func (s *Streamer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Streamer) run(ctx context.Context) error {
	one := make([]byte, 1)
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := s.port.Read(one)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, transport.ErrClosed) {
				return nil
			}
			return err
		}
		if n == 0 {
			continue
		}
		s.stats.addBytes(n)

		before := s.dec.Discarded()
		f, ok := s.dec.Feed(one[0])
		if d := s.dec.Discarded() - before; d > 0 {
			s.stats.addDiscarded(d)
		}
		if !ok {
			continue
		}

		r, err := Decode(f)
		s.stats.Update(r, err)
		if err != nil {
			continue
		}
		s.snap.Apply(r)
		if s.OnFrame != nil {
			s.OnFrame(r)
		}
	}
}
