// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

var (
	imuInterval time.Duration
	imuRaw      bool
	imuStats    bool
)

var imuCmd = &cobra.Command{
	Use:   "imu",
	Short: "Stream orientation and environment readings from the IMU",
	Long: `Connect to the WitMotion IMU and print the latest snapshot at a fixed
interval until interrupted or the port fails.

With --raw every decoded frame is printed as it arrives.`,
	RunE: runIMU,
}

func init() {
	imuCmd.Flags().DurationVarP(&imuInterval, "interval", "i", time.Second, "Snapshot print interval")
	imuCmd.Flags().BoolVar(&imuRaw, "raw", false, "Print every decoded frame")
	imuCmd.Flags().BoolVar(&imuStats, "stats", false, "Print decoder statistics on exit")
	rootCmd.AddCommand(imuCmd)
}

func runIMU(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	opener, err := newOpener()
	if err != nil {
		return err
	}
	s := witmotion.NewSession(opener, notifier)
	if imuRaw {
		s.OnFrame = func(r witmotion.Reading) {
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), witmotion.FormatReading(r))
		}
	}
	if err := connect(ctx, s); err != nil {
		return err
	}
	defer func() {
		s.Disconnect()
		if imuStats {
			fmt.Print(s.Statistics())
		}
	}()

	ticker := time.NewTicker(imuInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !s.IsConnected() {
				return fmt.Errorf("IMU connection lost")
			}
			if !imuRaw {
				fmt.Print(witmotion.FormatValues(s.Latest()))
			}
		}
	}
}
