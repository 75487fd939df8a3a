// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package tc36

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// DEFAULT_CHAR_DELAY is the pause after each transmitted character
const DEFAULT_CHAR_DELAY = time.Millisecond

// Controller runs request/reply exchanges on an open port. It is not safe
// for concurrent use; Session serialises access.
type Controller struct {
	port      transport.Port
	charDelay time.Duration
}

// NewController wraps port. charDelay < 0 selects the default.
func NewController(port transport.Port, charDelay time.Duration) *Controller {
	if charDelay < 0 {
		charDelay = DEFAULT_CHAR_DELAY
	}
	return &Controller{port: port, charDelay: charDelay}
}

// Exchange sends one command and returns the reply's data field
func (c *Controller) Exchange(ctx context.Context, cmd, value string) (string, error) {
	frame := EncodeRequest(cmd, value)
	for i := 0; i < len(frame); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := c.port.Write([]byte{frame[i]}); err != nil {
			return "", fmt.Errorf("write: %w", err)
		}
		if c.charDelay > 0 {
			time.Sleep(c.charDelay)
		}
	}

	reply, err := transport.ReadUntil(c.port, ACK, REPLY_SIZE*4)
	if err != nil && !errors.Is(err, transport.ErrOverflow) {
		return "", fmt.Errorf("read: %w", err)
	}
	return DecodeReply(string(reply))
}

func (c *Controller) read(ctx context.Context, cmd string) (int32, error) {
	data, err := c.Exchange(ctx, cmd, ZERO_VALUE)
	if err != nil {
		return 0, err
	}
	return FromHex32(data)
}

// EnableComputerSetpoint makes the controller follow the setpoint written
// over the serial line
func (c *Controller) EnableComputerSetpoint(ctx context.Context) error {
	_, err := c.Exchange(ctx, CMD_SET_TYPE_DEFINE, ZERO_VALUE)
	return err
}

// SetPower switches the main output
func (c *Controller) SetPower(ctx context.Context, on bool) error {
	var v int32
	if on {
		v = 1
	}
	_, err := c.Exchange(ctx, CMD_POWER_ON_OFF, ToHex32(v))
	return err
}

// Temperature reads the primary sensor in °C
func (c *Controller) Temperature(ctx context.Context) (float64, error) {
	v, err := c.read(ctx, CMD_INPUT1)
	return Celsius(v), err
}

// Setpoint reads the effective setpoint in °C
func (c *Controller) Setpoint(ctx context.Context) (float64, error) {
	v, err := c.read(ctx, CMD_DESIRED_CONTROL)
	return Celsius(v), err
}

// SetSetpoint writes a fixed setpoint in °C
func (c *Controller) SetSetpoint(ctx context.Context, celsius float64) error {
	_, err := c.Exchange(ctx, CMD_FIXED_SETPOINT, ToHex32(CentiDegrees(celsius)))
	return err
}
