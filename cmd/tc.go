// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
)

var tcCmd = &cobra.Command{
	Use:   "tc",
	Short: "TC-36-25 temperature controller",
	Long: `Commands for the TC-36-25 temperature controller. Connecting switches
the controller to computer-set mode and turns its output on.`,
}

var tcReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Read temperature and setpoint once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTC(func(ctx context.Context, s *tc36.Session) error {
			r, err := tc36.NewPoller(s, 0).Poll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Temperature: %.2f °C  Setpoint: %.2f °C\n", r.Current, r.Setpoint)
			return nil
		})
	},
}

var tcSetCmd = &cobra.Command{
	Use:   "set <celsius>",
	Short: fmt.Sprintf("Set the setpoint (%g to %g °C)", tc36.MIN_SETPOINT, tc36.MAX_SETPOINT),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTC(func(ctx context.Context, s *tc36.Session) error {
			return report(s.Send(ctx, args[0]))
		})
	},
}

var tcPowerCmd = &cobra.Command{
	Use:       "power <on|off>",
	Short:     "Switch the controller output",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var on bool
		switch strings.ToLower(args[0]) {
		case "on":
			on = true
		case "off":
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
		return withTC(func(ctx context.Context, s *tc36.Session) error {
			return report(s.SetPower(ctx, on))
		})
	},
}

var tcPollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll temperature and setpoint until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runTCPoll,
}

func init() {
	addServiceFlags(tcPollCmd)
	tcCmd.AddCommand(tcReadCmd, tcSetCmd, tcPowerCmd, tcPollCmd)
	rootCmd.AddCommand(tcCmd)
}

func withTC(fn func(ctx context.Context, s *tc36.Session) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	opener, err := newOpener()
	if err != nil {
		return err
	}
	s := tc36.NewSession(opener, notifier)
	if err := connect(ctx, s); err != nil {
		s.Disconnect()
		return err
	}
	defer s.Disconnect()
	return fn(ctx, s)
}

func runTCPoll(cmd *cobra.Command, args []string) error {
	return withTC(func(ctx context.Context, s *tc36.Session) error {
		svc, err := startServices(ctx)
		if err != nil {
			return err
		}
		svc.connected(device.KindTemperature, true)

		p := tc36.NewPoller(s, cfg.Devices.TempPollInterval)
		p.OnReading = func(r tc36.Reading) {
			fmt.Printf("[%s] Temperature: %.2f °C  Setpoint: %.2f °C\n",
				r.Updated.Format("15:04:05"), r.Current, r.Setpoint)
			svc.temperature(r)
		}
		p.Run(ctx)
		svc.wait()
		return nil
	})
}
