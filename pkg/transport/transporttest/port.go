// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package transporttest provides an in-memory Port for exercising device
// sessions without hardware.
package transporttest

import (
	"errors"
	"sync"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// Port is a scripted transport.Port. Bytes queued with Feed are returned by
// Read; an empty queue behaves like a read timeout. OnWrite, if set, is
// called after every Write and may Feed a reply.
type Port struct {
	Name string
	Mode transport.Mode

	// OnWrite is invoked outside the port lock
	OnWrite func(p *Port, data []byte)

	mu      sync.Mutex
	rx      []byte
	written []byte
	writes  int
	resets  int
	closed  bool
	readErr error
	timeout time.Duration
	idle    time.Duration
}

// New returns an open port with an empty receive queue
func New() *Port {
	return &Port{idle: time.Millisecond}
}

// Feed queues bytes to be returned by Read
func (p *Port) Feed(data []byte) {
	p.mu.Lock()
	p.rx = append(p.rx, data...)
	p.mu.Unlock()
}

// FeedString queues a string to be returned by Read
func (p *Port) FeedString(s string) {
	p.Feed([]byte(s))
}

// FailReads makes every subsequent Read return err
func (p *Port) FailReads(err error) {
	p.mu.Lock()
	p.readErr = err
	p.mu.Unlock()
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, transport.ErrClosed
	}
	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()
		return 0, err
	}
	if len(p.rx) == 0 {
		idle := p.idle
		p.mu.Unlock()
		time.Sleep(idle)
		return 0, nil
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	p.mu.Unlock()
	return n, nil
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, transport.ErrClosed
	}
	p.written = append(p.written, b...)
	p.writes++
	onWrite := p.OnWrite
	p.mu.Unlock()

	if onWrite != nil {
		onWrite(p, append([]byte(nil), b...))
	}
	return len(b), nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("port already closed")
	}
	p.closed = true
	return nil
}

func (p *Port) ResetInputBuffer() error {
	p.mu.Lock()
	p.rx = nil
	p.resets++
	p.mu.Unlock()
	return nil
}

func (p *Port) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	p.timeout = t
	p.mu.Unlock()
	return nil
}

// Written returns a copy of everything written so far
func (p *Port) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written...)
}

// Writes returns the number of Write calls
func (p *Port) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Resets returns the number of ResetInputBuffer calls
func (p *Port) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

// Closed reports whether Close has been called
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Opener hands out scripted ports and remembers every one it opened
type Opener struct {
	// Make builds the port for a given open call; returning an error
	// simulates a port that cannot be opened
	Make func(name string, mode transport.Mode) (*Port, error)

	mu     sync.Mutex
	opened []*Port
}

// Open implements transport.Opener
func (o *Opener) Open(name string, mode transport.Mode) (transport.Port, error) {
	var (
		p   *Port
		err error
	)
	if o.Make != nil {
		p, err = o.Make(name, mode)
	} else {
		p = New()
	}
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.Mode = mode

	o.mu.Lock()
	o.opened = append(o.opened, p)
	o.mu.Unlock()
	return p, nil
}

// Opened returns the ports opened so far, in order
func (o *Opener) Opened() []*Port {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Port(nil), o.opened...)
}
