// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

import (
	"fmt"
	"strings"
)

// FormatValues renders a snapshot copy as a human-readable block
func FormatValues(v Values) string {
	var b strings.Builder

	stamp := "never"
	if !v.Updated.IsZero() {
		stamp = v.Updated.Format("15:04:05.000")
	}
	fmt.Fprintf(&b, "[%s]\n", stamp)
	fmt.Fprintf(&b, "  Accel (g):     x=%8.3f y=%8.3f z=%8.3f\n", v.Acceleration.X, v.Acceleration.Y, v.Acceleration.Z)
	fmt.Fprintf(&b, "  Gyro (°/s):    x=%8.2f y=%8.2f z=%8.2f\n", v.AngularVelocity.X, v.AngularVelocity.Y, v.AngularVelocity.Z)
	fmt.Fprintf(&b, "  Angle (°):     roll=%7.2f pitch=%7.2f yaw=%7.2f\n", v.Angle.Roll, v.Angle.Pitch, v.Angle.Yaw)
	fmt.Fprintf(&b, "  Mag (µT):      x=%8.1f y=%8.1f z=%8.1f\n", v.Magnetic.X, v.Magnetic.Y, v.Magnetic.Z)
	fmt.Fprintf(&b, "  Pressure:      %.2f\n", v.Pressure)
	fmt.Fprintf(&b, "  Temperature:   %.2f °C\n", v.Temperature)
	if v.HasFix {
		fmt.Fprintf(&b, "  Position:      lat=%.7f lon=%.7f\n", v.Latitude, v.Longitude)
	} else {
		b.WriteString("  Position:      no fix\n")
	}
	return b.String()
}

// FormatReading renders a single decoded frame on one line
func FormatReading(r Reading) string {
	switch r.Type {
	case TYPE_ACCELERATION, TYPE_ANGULAR_VELOCITY, TYPE_MAGNETIC:
		return fmt.Sprintf("%s x=%.3f y=%.3f z=%.3f", r.Type, r.Vector.X, r.Vector.Y, r.Vector.Z)
	case TYPE_ANGLE:
		return fmt.Sprintf("%s roll=%.2f pitch=%.2f yaw=%.2f", r.Type, r.Angle.Roll, r.Angle.Pitch, r.Angle.Yaw)
	case TYPE_PRESSURE:
		return fmt.Sprintf("%s pressure=%.2f temperature=%.2f", r.Type, r.Pressure, r.Temperature)
	case TYPE_GPS:
		if !r.Fix {
			return fmt.Sprintf("%s no fix", r.Type)
		}
		return fmt.Sprintf("%s lat=%.7f lon=%.7f", r.Type, r.Latitude, r.Longitude)
	}
	return r.Type.String()
}
