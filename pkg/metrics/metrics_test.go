// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

func TestWatchEvents(t *testing.T) {
	m := New()
	n := device.NewNotifier(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := m.WatchEvents(ctx, n)

	n.Emit(device.KindMotor, "No ACK from motor")
	n.Emit(device.KindMotor, "No ACK from motor")
	n.Emit(device.KindFilterWheel, "No response from filter wheel (timeout).")

	counter := m.Events.WithLabelValues("motor", "WARNING")
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if testutil.ToFloat64(counter) == 2 {
			return poll.Success()
		}
		return poll.Continue("events not counted yet")
	}, poll.WithTimeout(time.Second), poll.WithDelay(time.Millisecond))

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if testutil.ToFloat64(m.Events.WithLabelValues("filterwheel", "ERROR")) == 1 {
			return poll.Success()
		}
		return poll.Continue("error event not counted yet")
	}, poll.WithTimeout(time.Second), poll.WithDelay(time.Millisecond))

	cancel()
	<-done
}

func TestObservations(t *testing.T) {
	m := New()

	m.SetConnected(device.KindIMU, true)
	m.SetConnected(device.KindMotor, false)
	assert.Equal(t, testutil.ToFloat64(m.Connected.WithLabelValues("imu")), 1.0)
	assert.Equal(t, testutil.ToFloat64(m.Connected.WithLabelValues("motor")), 0.0)

	m.ObserveTemperature(tc36.Reading{Current: 21.5, Setpoint: 25, Valid: true, Updated: time.Unix(1700000000, 0)})
	m.ObserveTemperature(tc36.Reading{Current: 99, Valid: false})
	assert.Equal(t, testutil.ToFloat64(m.Temperature.WithLabelValues("current")), 21.5)
	assert.Equal(t, testutil.ToFloat64(m.Temperature.WithLabelValues("setpoint")), 25.0)
	assert.Equal(t, testutil.ToFloat64(m.LastReading.WithLabelValues("temperature")), 1700000000.0)

	m.ObserveAmbient(thp.Reading{SensorID: "THP-1", Temperature: 23.5, Humidity: 45, Pressure: 1013, Time: time.Now()})
	assert.Equal(t, testutil.ToFloat64(m.Ambient.WithLabelValues("humidity", "THP-1")), 45.0)
}

func TestIMUCollector(t *testing.T) {
	m := New()
	stats := witmotion.NewStatistics()
	assert.NilError(t, m.RegisterIMU(stats))

	stats.Update(witmotion.Reading{Type: witmotion.TYPE_ANGLE}, nil)
	stats.Update(witmotion.Reading{}, witmotion.ErrUnknownType)

	expected := `
# HELP bench_imu_frames_total Checksum-valid frames decoded
# TYPE bench_imu_frames_total counter
bench_imu_frames_total 2
# HELP bench_imu_unknown_frames_total Valid frames with an unknown type ID
# TYPE bench_imu_unknown_frames_total counter
bench_imu_unknown_frames_total 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"bench_imu_frames_total", "bench_imu_unknown_frames_total")
	assert.NilError(t, err)

	// a second registration of the same collector is rejected
	assert.Assert(t, m.RegisterIMU(stats) != nil)
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetConnected(device.KindAmbient, true)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	assert.NilError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Assert(t, strings.Contains(string(body), `bench_device_connected{device="ambient"} 1`))

	resp, err = srv.Client().Get(srv.URL + "/health")
	assert.NilError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, string(body), "OK")
}
