// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package publish forwards bench status events and readings to Redis as
// compact CBOR messages of the form [msg_type, {int key: value}].
package publish

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

// Message types
const (
	MSG_EVENT       = 0x01
	MSG_IMU         = 0x10
	MSG_TEMPERATURE = 0x11
	MSG_AMBIENT     = 0x12
)

// Payload keys shared by every message type
const (
	KEY_TIME = 0
)

// Event payload keys
const (
	KEY_EVENT_ID = iota + 1
	KEY_EVENT_DEVICE
	KEY_EVENT_SEVERITY
	KEY_EVENT_MESSAGE
)

// IMU payload keys
const (
	KEY_IMU_ACCEL = iota + 1
	KEY_IMU_GYRO
	KEY_IMU_ANGLE
	KEY_IMU_MAG
	KEY_IMU_PRESSURE
	KEY_IMU_TEMPERATURE
	KEY_IMU_LATITUDE
	KEY_IMU_LONGITUDE
	KEY_IMU_FIX
)

// Temperature controller payload keys
const (
	KEY_TC_CURRENT = iota + 1
	KEY_TC_SETPOINT
)

// Ambient sensor payload keys
const (
	KEY_THP_SENSOR = iota + 1
	KEY_THP_TEMPERATURE
	KEY_THP_HUMIDITY
	KEY_THP_PRESSURE
)

// EncodeMessage encodes [msgType, payload]; an empty payload encodes as nil
func EncodeMessage(msgType uint8, payload map[int]interface{}) ([]byte, error) {
	var msg interface{}
	if len(payload) == 0 {
		msg = []interface{}{uint64(msgType), nil}
	} else {
		msg = []interface{}{uint64(msgType), payload}
	}
	data, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message 0x%02X: %w", msgType, err)
	}
	return data, nil
}

// ParseMessage decodes a message produced by EncodeMessage
func ParseMessage(data []byte) (msgType uint8, payload map[int]interface{}, err error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("empty CBOR payload")
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return 0, nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	if len(msg) != 2 {
		return 0, nil, fmt.Errorf("expected 2-element array, got %d elements", len(msg))
	}

	v, ok := msg[0].(uint64)
	if !ok || v > 255 {
		return 0, nil, fmt.Errorf("bad message type %v", msg[0])
	}
	msgType = uint8(v)

	if msg[1] == nil {
		return msgType, nil, nil
	}
	m, ok := msg[1].(map[interface{}]interface{})
	if !ok {
		return 0, nil, fmt.Errorf("expected map or nil for payload, got %T", msg[1])
	}
	payload = make(map[int]interface{}, len(m))
	for key, val := range m {
		switch k := key.(type) {
		case uint64:
			payload[int(k)] = val
		case int64:
			payload[int(k)] = val
		default:
			return 0, nil, fmt.Errorf("expected integer map key, got %T", key)
		}
	}
	return msgType, payload, nil
}

func stamp(t time.Time) int64 {
	return t.UnixMilli()
}

func vector(v witmotion.Vector) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// EncodeEvent encodes a status event
func EncodeEvent(ev device.Event) ([]byte, error) {
	return EncodeMessage(MSG_EVENT, map[int]interface{}{
		KEY_TIME:           stamp(ev.Time),
		KEY_EVENT_ID:       ev.ID.String(),
		KEY_EVENT_DEVICE:   ev.Device.String(),
		KEY_EVENT_SEVERITY: ev.Severity.String(),
		KEY_EVENT_MESSAGE:  ev.Message,
	})
}

// EncodeIMU encodes an IMU snapshot copy
func EncodeIMU(v witmotion.Values) ([]byte, error) {
	p := map[int]interface{}{
		KEY_TIME:            stamp(v.Updated),
		KEY_IMU_ACCEL:       vector(v.Acceleration),
		KEY_IMU_GYRO:        vector(v.AngularVelocity),
		KEY_IMU_ANGLE:       []float64{v.Angle.Roll, v.Angle.Pitch, v.Angle.Yaw},
		KEY_IMU_MAG:         vector(v.Magnetic),
		KEY_IMU_PRESSURE:    v.Pressure,
		KEY_IMU_TEMPERATURE: v.Temperature,
		KEY_IMU_FIX:         v.HasFix,
	}
	if v.HasFix {
		p[KEY_IMU_LATITUDE] = v.Latitude
		p[KEY_IMU_LONGITUDE] = v.Longitude
	}
	return EncodeMessage(MSG_IMU, p)
}

// EncodeTemperature encodes a temperature controller poll
func EncodeTemperature(r tc36.Reading) ([]byte, error) {
	return EncodeMessage(MSG_TEMPERATURE, map[int]interface{}{
		KEY_TIME:        stamp(r.Updated),
		KEY_TC_CURRENT:  r.Current,
		KEY_TC_SETPOINT: r.Setpoint,
	})
}

// EncodeAmbient encodes a box sensor reading
func EncodeAmbient(r thp.Reading) ([]byte, error) {
	return EncodeMessage(MSG_AMBIENT, map[int]interface{}{
		KEY_TIME:            stamp(r.Time),
		KEY_THP_SENSOR:      r.SensorID,
		KEY_THP_TEMPERATURE: r.Temperature,
		KEY_THP_HUMIDITY:    r.Humidity,
		KEY_THP_PRESSURE:    r.Pressure,
	})
}

// GetMapString extracts a string from a payload map
func GetMapString(m map[int]interface{}, key int) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

// GetMapFloat extracts a float64 from a payload map
func GetMapFloat(m map[int]interface{}, key int) (float64, bool) {
	switch val := m[key].(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}

// GetMapInt extracts an int64 from a payload map
func GetMapInt(m map[int]interface{}, key int) (int64, bool) {
	switch val := m[key].(type) {
	case int64:
		return val, true
	case uint64:
		return int64(val), true
	}
	return 0, false
}

// GetMapBool extracts a bool from a payload map
func GetMapBool(m map[int]interface{}, key int) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}
