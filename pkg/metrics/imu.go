// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

type imuCollector struct {
	stats *witmotion.Statistics

	bytes     *prometheus.Desc
	frames    *prometheus.Desc
	discarded *prometheus.Desc
	unknown   *prometheus.Desc
}

func newIMUCollector(stats *witmotion.Statistics) *imuCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "imu", name), help, nil, nil)
	}
	return &imuCollector{
		stats:     stats,
		bytes:     desc("bytes_total", "Bytes read from the IMU"),
		frames:    desc("frames_total", "Checksum-valid frames decoded"),
		discarded: desc("resync_bytes_total", "Bytes dropped while resynchronising"),
		unknown:   desc("unknown_frames_total", "Valid frames with an unknown type ID"),
	}
}

func (c *imuCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytes
	ch <- c.frames
	ch <- c.discarded
	ch <- c.unknown
}

func (c *imuCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(s.Bytes))
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.Frames))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(s.Discarded))
	ch <- prometheus.MustNewConstMetric(c.unknown, prometheus.CounterValue, float64(s.UnknownTypes))
}
