// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

import (
	"sync"
	"time"
)

// Values is a point-in-time copy of the latest readings
type Values struct {
	Acceleration    Vector
	AngularVelocity Vector
	Angle           Orientation
	Magnetic        Vector

	Pressure    float64
	Temperature float64

	Latitude  float64
	Longitude float64
	HasFix    bool

	Updated time.Time
}

// Snapshot holds the most recent value of every field. The streamer is the
// only writer; readers get copies from Latest.
type Snapshot struct {
	mu sync.RWMutex
	v  Values
}

// Latest returns a copy of the current values
func (s *Snapshot) Latest() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

// Apply folds a reading into the snapshot. A GPS reading without a fix
// leaves the coordinates alone.
func (s *Snapshot) Apply(r Reading) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Type {
	case TYPE_ACCELERATION:
		s.v.Acceleration = r.Vector
	case TYPE_ANGULAR_VELOCITY:
		s.v.AngularVelocity = r.Vector
	case TYPE_ANGLE:
		s.v.Angle = r.Angle
	case TYPE_MAGNETIC:
		s.v.Magnetic = r.Vector
	case TYPE_PRESSURE:
		s.v.Pressure = r.Pressure
		s.v.Temperature = r.Temperature
	case TYPE_GPS:
		if !r.Fix {
			return false
		}
		s.v.Latitude = r.Latitude
		s.v.Longitude = r.Longitude
		s.v.HasFix = true
	default:
		return false
	}
	s.v.Updated = time.Now()
	return true
}
