// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/azmotor"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
)

var motorCmd = &cobra.Command{
	Use:   "motor",
	Short: "Oriental AZ motor over Modbus RTU",
	Long: `Commands for the Oriental AZ stepper controller (slave 2).

The controller's baud rate is discovered on connect unless --baud is given.`,
}

var motorProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Search for the controller's baud rate",
	Args:  cobra.NoArgs,
	RunE:  runMotorProbe,
}

var motorMoveCmd = &cobra.Command{
	Use:   "move <angle>",
	Short: "Move to an absolute position",
	Args:  cobra.ExactArgs(1),
	RunE:  runMotorMove,
}

var motorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read the direct-operation data registers",
	Args:  cobra.NoArgs,
	RunE:  runMotorStatus,
}

func init() {
	motorCmd.AddCommand(motorProbeCmd, motorMoveCmd, motorStatusCmd)
	rootCmd.AddCommand(motorCmd)
}

func runMotorProbe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	ep, err := endpoint(device.KindMotor)
	if err != nil {
		return err
	}
	opener, err := newOpener()
	if err != nil {
		return err
	}

	bauds := azmotor.BaudRates
	if ep.Baud != 0 {
		bauds = []int{ep.Baud}
	}

	fmt.Printf("Probing %s (slave %d)\n", ep.Port, azmotor.SLAVE_ID)
	d, err := azmotor.Discover(ctx, opener, ep.Port, bauds, logger)
	for _, a := range d.Attempts {
		status := "no response"
		switch {
		case a.Err != nil:
			status = a.Err.Error()
		case d.Found && a.Baud == d.Baud:
			status = "found"
		}
		fmt.Printf("  %6d baud: %s\n", a.Baud, status)
	}
	if err != nil {
		return err
	}
	if !d.Found {
		return fmt.Errorf("no response from motor on %s", ep.Port)
	}
	d.Port.Close()
	fmt.Printf("Controller answers at %d baud\n", d.Baud)
	return nil
}

func withMotor(fn func(ctx context.Context, s *azmotor.Session) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	opener, err := newOpener()
	if err != nil {
		return err
	}
	s := azmotor.NewSession(opener, notifier)
	if err := connect(ctx, s); err != nil {
		return err
	}
	defer s.Disconnect()
	return fn(ctx, s)
}

func runMotorMove(cmd *cobra.Command, args []string) error {
	return withMotor(func(ctx context.Context, s *azmotor.Session) error {
		return report(s.MoveText(ctx, args[0]))
	})
}

func runMotorStatus(cmd *cobra.Command, args []string) error {
	return withMotor(func(ctx context.Context, s *azmotor.Session) error {
		v, err := s.OperationData()
		if err != nil {
			return fmt.Errorf("read operation data: %w", err)
		}
		fmt.Printf("Operation data: 0x%08X (%d)\n", v, v)
		return nil
	})
}
