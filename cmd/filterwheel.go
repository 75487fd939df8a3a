// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/filterwheel"
)

var fwNoHome bool

var filterwheelCmd = &cobra.Command{
	Use:     "filterwheel",
	Aliases: []string{"fw"},
	Short:   "Filter wheel commands",
	Long: `Commands for the filter wheel. The wheel is homed to position 1 on
connect unless --no-home is given.`,
}

var fwSendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send a raw command such as F13 or ?",
	Args:  cobra.ExactArgs(1),
	RunE:  runFWSend,
}

var fwGotoCmd = &cobra.Command{
	Use:   "goto <position>",
	Short: "Move to a position 1-9",
	Args:  cobra.ExactArgs(1),
	RunE:  runFWGoto,
}

var fwQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Report the current position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFilterWheel(func(ctx context.Context, s *filterwheel.Session) error {
			return report(s.Send(ctx, filterwheel.QUERY))
		})
	},
}

func init() {
	filterwheelCmd.PersistentFlags().BoolVar(&fwNoHome, "no-home", false, "Do not home the wheel on connect")
	filterwheelCmd.AddCommand(fwSendCmd, fwGotoCmd, fwQueryCmd)
	rootCmd.AddCommand(filterwheelCmd)
}

func withFilterWheel(fn func(ctx context.Context, s *filterwheel.Session) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	opener, err := newOpener()
	if err != nil {
		return err
	}
	s := filterwheel.NewSession(opener, notifier)
	s.HomeOnConnect = !fwNoHome
	if err := connect(ctx, s); err != nil {
		return err
	}
	defer s.Disconnect()
	return fn(ctx, s)
}

func runFWSend(cmd *cobra.Command, args []string) error {
	return withFilterWheel(func(ctx context.Context, s *filterwheel.Session) error {
		return report(s.Send(ctx, args[0]))
	})
}

func runFWGoto(cmd *cobra.Command, args []string) error {
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid position %q", args[0])
	}
	return withFilterWheel(func(ctx context.Context, s *filterwheel.Session) error {
		return report(s.Goto(ctx, pos))
	})
}
