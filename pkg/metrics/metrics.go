// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package metrics exposes bench device activity as Prometheus metrics
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

const namespace = "bench"

// Metrics owns a private registry so several instances never collide
type Metrics struct {
	registry *prometheus.Registry

	Events      *prometheus.CounterVec
	Connected   *prometheus.GaugeVec
	Temperature *prometheus.GaugeVec
	Ambient     *prometheus.GaugeVec
	LastReading *prometheus.GaugeVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Status messages emitted, by device and severity",
		}, []string{"device", "severity"}),
		Connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_connected",
			Help:      "1 while the device session is connected",
		}, []string{"device"}),
		Temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_controller_celsius",
			Help:      "Temperature controller readings",
		}, []string{"value"}),
		Ambient: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ambient",
			Help:      "Box sensor temperature (°C), humidity (%RH) and pressure (hPa)",
		}, []string{"quantity", "sensor"}),
		LastReading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reading_timestamp_seconds",
			Help:      "Unix time of the last good reading per device",
		}, []string{"device"}),
	}
	m.registry.MustRegister(m.Events, m.Connected, m.Temperature, m.Ambient, m.LastReading)
	return m
}

// Registry returns the registry backing Handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterIMU exports stream counters from stats at scrape time
func (m *Metrics) RegisterIMU(stats *witmotion.Statistics) error {
	return m.registry.Register(newIMUCollector(stats))
}

// WatchEvents subscribes to n and counts every event until ctx is done.
// The returned channel is closed once counting has stopped.
func (m *Metrics) WatchEvents(ctx context.Context, n *device.Notifier) <-chan struct{} {
	events, cancel := n.Subscribe(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				m.Events.WithLabelValues(ev.Device.String(), ev.Severity.String()).Inc()
			}
		}
	}()
	return done
}

// SetConnected records a session's connection state
func (m *Metrics) SetConnected(kind device.Kind, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	m.Connected.WithLabelValues(kind.String()).Set(v)
}

// ObserveTemperature records a temperature controller poll
func (m *Metrics) ObserveTemperature(r tc36.Reading) {
	if !r.Valid {
		return
	}
	m.Temperature.WithLabelValues("current").Set(r.Current)
	m.Temperature.WithLabelValues("setpoint").Set(r.Setpoint)
	m.LastReading.WithLabelValues(device.KindTemperature.String()).Set(float64(r.Updated.Unix()))
}

// ObserveAmbient records a box sensor reading
func (m *Metrics) ObserveAmbient(r thp.Reading) {
	m.Ambient.WithLabelValues("temperature", r.SensorID).Set(r.Temperature)
	m.Ambient.WithLabelValues("humidity", r.SensorID).Set(r.Humidity)
	m.Ambient.WithLabelValues("pressure", r.SensorID).Set(r.Pressure)
	m.LastReading.WithLabelValues(device.KindAmbient.String()).Set(float64(r.Time.Unix()))
}

// Handler serves /metrics and /health
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Serve runs the metrics server until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.WithField("addr", addr).Info("metrics server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
