// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/metrics"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/publish"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

var (
	metricsAddr string
	redisAddr   string
)

// addServiceFlags registers the metrics and Redis flags on long-running commands
func addServiceFlags(c *cobra.Command) {
	c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")
	c.Flags().StringVar(&redisAddr, "redis-addr", "", "Publish events and readings to this Redis server (overrides config)")
}

// services carries the optional metrics server and Redis publisher. Every
// method is a no-op for a disabled service.
type services struct {
	ctx     context.Context
	metrics *metrics.Metrics
	pub     *publish.Publisher
	closers []func() error
	wg      sync.WaitGroup
}

func startServices(ctx context.Context) (*services, error) {
	s := &services{ctx: ctx}

	mcfg := cfg.Metrics
	if metricsAddr != "" {
		mcfg.Enabled = true
		mcfg.Addr = metricsAddr
	}
	if mcfg.Enabled {
		s.metrics = metrics.New()
		s.track(s.metrics.WatchEvents(ctx, notifier))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.metrics.Serve(ctx, mcfg.Addr, logger); err != nil {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	rcfg := cfg.Redis
	if redisAddr != "" {
		rcfg.Enabled = true
		rcfg.Addr = redisAddr
	}
	if rcfg.Enabled {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pub, closeFn, err := publish.Dial(pingCtx, rcfg, logger)
		cancel()
		if err != nil {
			return nil, err
		}
		s.pub = pub
		s.closers = append(s.closers, closeFn)
		s.track(pub.ForwardEvents(ctx, notifier))
	}
	return s, nil
}

func (s *services) track(done <-chan struct{}) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-done
	}()
}

// wait blocks until every service goroutine has exited; ctx must be done
func (s *services) wait() {
	s.wg.Wait()
	for _, c := range s.closers {
		c()
	}
}

func (s *services) watchIMU(imu *witmotion.Session) {
	if s.metrics != nil {
		if err := s.metrics.RegisterIMU(imu.Statistics()); err != nil {
			logger.WithError(err).Warn("imu metrics not registered")
		}
	}
}

func (s *services) connected(kind device.Kind, ok bool) {
	if s.metrics != nil {
		s.metrics.SetConnected(kind, ok)
	}
}

func (s *services) temperature(r tc36.Reading) {
	if s.metrics != nil {
		s.metrics.ObserveTemperature(r)
	}
	if s.pub != nil {
		if err := s.pub.Temperature(s.ctx, r); err != nil {
			logger.WithError(err).Debug("temperature not published")
		}
	}
}

func (s *services) ambient(r thp.Reading) {
	if s.metrics != nil {
		s.metrics.ObserveAmbient(r)
	}
	if s.pub != nil {
		if err := s.pub.Ambient(s.ctx, r); err != nil {
			logger.WithError(err).Debug("ambient reading not published")
		}
	}
}

func (s *services) imu(v witmotion.Values) {
	if s.pub != nil {
		if err := s.pub.IMU(s.ctx, v); err != nil {
			logger.WithError(err).Debug("imu snapshot not published")
		}
	}
}
