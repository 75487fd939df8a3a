// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
)

var thpCmd = &cobra.Command{
	Use:   "thp",
	Short: "Temperature/humidity/pressure box sensor",
}

var thpReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Take one reading",
	Args:  cobra.NoArgs,
	RunE:  runTHPRead,
}

var thpPollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Sample on the configured interval until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runTHPPoll,
}

func init() {
	addServiceFlags(thpPollCmd)
	thpCmd.AddCommand(thpReadCmd, thpPollCmd)
	rootCmd.AddCommand(thpCmd)
}

func newTHPSession() (*thp.Session, error) {
	opener, err := newOpener()
	if err != nil {
		return nil, err
	}
	s := thp.NewSession(opener, notifier)
	s.Reuse = cfg.Devices.THPReusePort
	return s, nil
}

func printAmbient(r thp.Reading) {
	fmt.Printf("[%s] %s  T=%.2f °C  RH=%.2f %%  P=%.2f hPa\n",
		r.Time.Format("15:04:05"), r.SensorID, r.Temperature, r.Humidity, r.Pressure)
}

func runTHPRead(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newTHPSession()
	if err != nil {
		return err
	}
	if err := connect(ctx, s); err != nil {
		return err
	}
	defer s.Disconnect()

	r, err := s.Sample(ctx)
	if err != nil {
		return err
	}
	printAmbient(r)
	return nil
}

func runTHPPoll(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newTHPSession()
	if err != nil {
		return err
	}
	if err := connect(ctx, s); err != nil {
		return err
	}
	defer s.Disconnect()

	svc, err := startServices(ctx)
	if err != nil {
		return err
	}

	p := thp.NewPoller(s, cfg.Devices.THPPollInterval)
	p.OnReading = func(r thp.Reading) {
		printAmbient(r)
		svc.ambient(r)
		svc.connected(device.KindAmbient, true)
	}
	p.Run(ctx)
	svc.wait()
	return nil
}
