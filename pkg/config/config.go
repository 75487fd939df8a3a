// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package config loads the bench hardware configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
)

type Config struct {
	Devices DevicesConfig `yaml:"devices"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Log     LogConfig     `yaml:"log"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DeviceConfig is a port and an optional baud rate. Port may be a
// ws:// or wss:// bridge URL.
type DeviceConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Endpoint converts the entry for a session's Connect
func (d DeviceConfig) Endpoint() device.Endpoint {
	return device.Endpoint{Port: d.Port, Baud: d.Baud}
}

type DevicesConfig struct {
	IMU            DeviceConfig `yaml:"imu"`
	Motor          DeviceConfig `yaml:"motor"`
	FilterWheel    DeviceConfig `yaml:"filterwheel"`
	TempController DeviceConfig `yaml:"temp_controller"`
	THPSensor      DeviceConfig `yaml:"thp_sensor"`

	TempPollInterval time.Duration `yaml:"temp_poll_interval"`
	THPPollInterval  time.Duration `yaml:"thp_poll_interval"`
	THPReusePort     bool          `yaml:"thp_reuse_port"`
}

// Get returns the entry for kind
func (d DevicesConfig) Get(kind device.Kind) DeviceConfig {
	switch kind {
	case device.KindIMU:
		return d.IMU
	case device.KindMotor:
		return d.Motor
	case device.KindFilterWheel:
		return d.FilterWheel
	case device.KindTemperature:
		return d.TempController
	case device.KindAmbient:
		return d.THPSensor
	}
	return DeviceConfig{}
}

type BridgeConfig struct {
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	SkipTLSVerify    bool          `yaml:"skip_tls_verify"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Channel    string `yaml:"channel"`
	ListLength int64  `yaml:"list_length"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the bench defaults. The motor has no fixed baud rate;
// it is discovered on connect.
func Default() *Config {
	return &Config{
		Devices: DevicesConfig{
			IMU:              DeviceConfig{Port: "COM5", Baud: 115200},
			Motor:            DeviceConfig{Port: "COM3"},
			FilterWheel:      DeviceConfig{Port: "COM17", Baud: 4800},
			TempController:   DeviceConfig{Port: "COM16", Baud: 9600},
			THPSensor:        DeviceConfig{Port: "COM8", Baud: 9600},
			TempPollInterval: time.Second,
			THPPollInterval:  3 * time.Second,
		},
		Bridge: BridgeConfig{
			HandshakeTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			Channel:    "bench_events",
			ListLength: 1000,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load reads path over the defaults; fields absent from the file keep
// their default values
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects settings no session could use
func (c *Config) Validate() error {
	for _, kind := range []device.Kind{device.KindIMU, device.KindMotor, device.KindFilterWheel, device.KindTemperature, device.KindAmbient} {
		if b := c.Devices.Get(kind).Baud; b < 0 {
			return fmt.Errorf("config: %s baud %d is negative", kind, b)
		}
	}
	if c.Devices.TempPollInterval < 0 || c.Devices.THPPollInterval < 0 {
		return fmt.Errorf("config: poll intervals must not be negative")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis enabled without an address")
	}
	return nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
