// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package device defines what every bench device session has in common:
// its kind, its connect/disconnect lifecycle, the Outcome of each operation,
// and the status event stream consumers subscribe to.
package device

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind identifies a device on the bench
type Kind int

const (
	KindIMU Kind = iota
	KindMotor
	KindFilterWheel
	KindTemperature
	KindAmbient
)

var kindNames = []string{"imu", "motor", "filterwheel", "temperature", "ambient"}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a device name back to its Kind
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown device kind %q", s)
}

// Endpoint is where a session connects. Baud zero means the device default
// (or auto-discovery for the motor).
type Endpoint struct {
	Port string
	Baud int
}

// Outcome is the reported result of a session operation. Message is the
// human-readable status line also emitted on the event stream.
type Outcome struct {
	OK      bool
	Message string
	Err     error
}

// Succeeded builds a successful outcome
func Succeeded(format string, args ...interface{}) Outcome {
	return Outcome{OK: true, Message: fmt.Sprintf(format, args...)}
}

// Failed builds a failed outcome carrying err
func Failed(err error, format string, args ...interface{}) Outcome {
	return Outcome{OK: false, Message: fmt.Sprintf(format, args...), Err: err}
}

// Session is the lifecycle every device session implements
type Session interface {
	Kind() Kind
	Connect(ctx context.Context, ep Endpoint) Outcome
	Disconnect() error
	IsConnected() bool
}

// Commander is a session that accepts discrete text commands
type Commander interface {
	Session
	Send(ctx context.Context, command string) Outcome
}

// Poll calls fn immediately and then every interval until ctx is done.
// Cycles never overlap; a slow fn delays the next tick.
func Poll(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
