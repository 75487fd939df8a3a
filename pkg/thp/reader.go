// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package thp reads the temperature/humidity/pressure box sensor, which
// answers a "p" command with a JSON document spread over one or more lines.
package thp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// Protocol constants
const (
	REQUEST           = "p\r\n"
	DEFAULT_BAUD      = 9600
	MAX_RESPONSE_SIZE = 4096
	DEFAULT_TIMEOUT   = time.Second
	LINE_READ_TIMEOUT = 100 * time.Millisecond
)

// ErrNoReading is wrapped by every reason a poll produced no reading
var ErrNoReading = errors.New("no THP reading")

var (
	ErrTimeout   = fmt.Errorf("%w: timeout", ErrNoReading)
	ErrMalformed = fmt.Errorf("%w: malformed response", ErrNoReading)
	ErrNoSensors = fmt.Errorf("%w: response lists no sensors", ErrNoReading)
)

// Reading is one sensor report
type Reading struct {
	SensorID    string
	Temperature float64 // °C
	Humidity    float64 // %RH
	Pressure    float64 // hPa
	Time        time.Time
}

type sensorReport struct {
	ID          json.RawMessage `json:"ID"`
	Temperature *float64        `json:"Temperature"`
	Humidity    *float64        `json:"Humidity"`
	Pressure    *float64        `json:"Pressure"`
}

type report struct {
	Sensors []sensorReport `json:"Sensors"`
}

// Parse extracts the first sensor from a complete JSON document
func Parse(doc []byte) (Reading, error) {
	var rep report
	if err := json.Unmarshal(doc, &rep); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(rep.Sensors) == 0 {
		return Reading{}, ErrNoSensors
	}

	s := rep.Sensors[0]
	if s.Temperature == nil || s.Humidity == nil || s.Pressure == nil {
		return Reading{}, fmt.Errorf("%w: sensor is missing fields", ErrMalformed)
	}
	return Reading{
		SensorID:    sensorID(s.ID),
		Temperature: *s.Temperature,
		Humidity:    *s.Humidity,
		Pressure:    *s.Pressure,
	}, nil
}

// sensorID accepts both string and numeric IDs
func sensorID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// Read sends the request on an open port and accumulates trimmed lines
// until they form a JSON document or timeout passes
func Read(ctx context.Context, port transport.Port, timeout time.Duration) (Reading, error) {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	deadline := time.Now().Add(timeout)

	if _, err := port.Write([]byte(REQUEST)); err != nil {
		return Reading{}, fmt.Errorf("%w: write: %v", ErrNoReading, err)
	}

	var acc []byte
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return Reading{}, err
		}
		if len(acc) >= MAX_RESPONSE_SIZE {
			return Reading{}, fmt.Errorf("%w: %v", ErrMalformed, transport.ErrOverflow)
		}

		line, err := transport.ReadUntil(port, '\n', MAX_RESPONSE_SIZE-len(acc))
		if errors.Is(err, transport.ErrOverflow) {
			return Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err != nil {
			return Reading{}, fmt.Errorf("%w: read: %v", ErrNoReading, err)
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		acc = append(acc, trimmed...)
		if json.Valid(acc) {
			r, err := Parse(acc)
			if err == nil {
				r.Time = time.Now()
			}
			return r, err
		}
	}

	if len(acc) == 0 {
		return Reading{}, ErrTimeout
	}
	return Reading{}, fmt.Errorf("%w: incomplete document %q", ErrMalformed, truncate(string(acc), 64))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
