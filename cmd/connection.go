// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// GetPassword retrieves the bridge password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("BENCH_BRIDGE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Bridge password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// newOpener builds the port opener from the bridge config and flags. The
// password is only asked for when a bridge user is set.
func newOpener() (transport.Opener, error) {
	d := &transport.Dialer{
		Username:         cfg.Bridge.Username,
		Password:         cfg.Bridge.Password,
		SkipTLSVerify:    cfg.Bridge.SkipTLSVerify || bridgeNoSSLVerify,
		HandshakeTimeout: cfg.Bridge.HandshakeTimeout,
	}
	if bridgeUsername != "" {
		d.Username = bridgeUsername
		d.Password = ""
	}
	if d.Username != "" && d.Password == "" && usesBridge() {
		pw, err := GetPassword()
		if err != nil {
			return nil, err
		}
		d.Password = pw
	}
	return d.Open, nil
}

func usesBridge() bool {
	if transport.IsBridgeURL(portName) {
		return true
	}
	for _, kind := range allKinds {
		if transport.IsBridgeURL(cfg.Devices.Get(kind).Port) {
			return true
		}
	}
	return false
}

var allKinds = []device.Kind{
	device.KindIMU,
	device.KindMotor,
	device.KindFilterWheel,
	device.KindTemperature,
	device.KindAmbient,
}

// endpoint returns the configured endpoint for kind with --port and --baud
// applied
func endpoint(kind device.Kind) (device.Endpoint, error) {
	ep := cfg.Devices.Get(kind).Endpoint()
	if portName != "" {
		ep.Port = portName
	}
	if baudRate != 0 {
		ep.Baud = baudRate
	}
	if ep.Port == "" {
		return ep, fmt.Errorf("no port configured for %s (use --port)", kind)
	}
	return ep, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// report prints an outcome and converts a failure into a command error
func report(o device.Outcome) error {
	if !o.OK {
		return errors.New(o.Message)
	}
	fmt.Println(o.Message)
	return nil
}

// connect opens a session on its configured endpoint
func connect(ctx context.Context, s device.Session) error {
	ep, err := endpoint(s.Kind())
	if err != nil {
		return err
	}
	return report(s.Connect(ctx, ep))
}
