// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/config"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
)

var (
	configPath string
	logLevel   string

	// Single-device overrides of the config file
	portName string
	baudRate int

	// Serial bridge flags
	bridgeUsername    string
	bridgeNoSSLVerify bool

	cfg      *config.Config
	notifier *device.Notifier
)

var logger = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "bench",
	Short: "Instrument bench device control",
	Long: `Bench - connect to and drive the devices on a spectrometer bench.

Each device command (imu, motor, filterwheel, tc, thp) connects to a single
device, runs one operation and disconnects. The monitor command connects to
every configured device and shows a live dashboard.

Port names come from the YAML config (--config) and may be overridden per
command with --port and --baud. A port may also be a ws:// or wss:// serial
bridge URL; with --username the bridge password is read from the
BENCH_BRIDGE_PASSWORD environment variable, or prompted for if not set.`,
	Version:           "4.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "bench.yaml", "Hardware config file (defaults are used if missing)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port or bridge URL (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (overrides config)")

	rootCmd.PersistentFlags().StringVar(&bridgeUsername, "username", "", "Username for serial bridge HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&bridgeNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := configureLogger(logger, level, cfg.Log.Format); err != nil {
		return err
	}

	notifier = device.NewNotifier(logger)
	return nil
}

func configureLogger(l *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)
	l.SetOutput(os.Stderr)

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
