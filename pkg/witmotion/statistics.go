// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Statistics counts stream activity. Counters are updated by the streamer
// goroutine and may be read concurrently.
type Statistics struct {
	StartTime time.Time

	bytes     atomic.Uint64
	frames    atomic.Uint64
	discarded atomic.Uint64
	unknown   atomic.Uint64
	noFix     atomic.Uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// StatsSnapshot is a consistent-enough copy of the counters with rates
type StatsSnapshot struct {
	Elapsed      time.Duration
	Bytes        uint64
	Frames       uint64
	Discarded    uint64
	UnknownTypes uint64
	NoFix        uint64
	FrameRate    float64 // frames/sec
}

func (s *Statistics) addBytes(n int) { s.bytes.Add(uint64(n)) }
func (s *Statistics) addDiscarded(n uint64) { s.discarded.Add(n) }

// Update records the outcome of one decoded frame
func (s *Statistics) Update(r Reading, err error) {
	s.frames.Add(1)
	if err != nil {
		s.unknown.Add(1)
		return
	}
	if r.Type == TYPE_GPS && !r.Fix {
		s.noFix.Add(1)
	}
}

// Snapshot returns the current counters
func (s *Statistics) Snapshot() StatsSnapshot {
	out := StatsSnapshot{
		Elapsed:      time.Since(s.StartTime),
		Bytes:        s.bytes.Load(),
		Frames:       s.frames.Load(),
		Discarded:    s.discarded.Load(),
		UnknownTypes: s.unknown.Load(),
		NoFix:        s.noFix.Load(),
	}
	if secs := out.Elapsed.Seconds(); secs > 0 {
		out.FrameRate = float64(out.Frames) / secs
	}
	return out
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	st := s.Snapshot()

	var validPercent float64
	if st.Frames > 0 {
		validPercent = float64(st.Frames-st.UnknownTypes) * 100.0 / float64(st.Frames)
	}

	result := fmt.Sprintf("=== IMU Statistics (%.0f seconds) ===\n", st.Elapsed.Seconds())
	result += fmt.Sprintf("Bytes Received:  %8d\n", st.Bytes)
	result += fmt.Sprintf("Frames:          %8d (%.1f%% known)\n", st.Frames, validPercent)
	if st.UnknownTypes > 0 {
		result += fmt.Sprintf("Unknown Types:   %8d\n", st.UnknownTypes)
	}
	if st.Discarded > 0 {
		result += fmt.Sprintf("Resync Bytes:    %8d\n", st.Discarded)
	}
	if st.NoFix > 0 {
		result += fmt.Sprintf("GPS Without Fix: %8d\n", st.NoFix)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", st.FrameRate)
	return result
}
