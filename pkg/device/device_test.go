// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package device

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message  string
		expected Severity
	}{
		{"IMU connection failed: no such file", SeverityError},
		{"Serial error: port closed", SeverityError},
		{"No response from motor on COM3.", SeverityError},
		{"No response from filter wheel (timeout).", SeverityError},
		{"Cannot open files", SeverityError},
		{"No ACK from motor", SeverityWarning},
		{"Invalid angle: \"abc\"", SeverityWarning},
		{"Filter wheel not connected", SeverityWarning},
		{"Spectrometer not ready.", SeverityWarning},
		{"Motor connected on COM3 at 57600 baud.", SeverityInfo},
		{"Filter wheel is at position 3.", SeverityInfo},
		// error keywords take precedence over warning keywords
		{"Invalid reply, read failed", SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, Classify(tt.message), tt.expected)
		})
	}
}

func TestKind_StringRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindIMU, KindMotor, KindFilterWheel, KindTemperature, KindAmbient} {
		parsed, err := ParseKind(k.String())
		assert.NilError(t, err)
		assert.Equal(t, parsed, k)
	}
	_, err := ParseKind("spectrometer")
	assert.ErrorContains(t, err, "unknown device kind")
	assert.Equal(t, Kind(42).String(), "kind(42)")
}

func TestNotifier_FanOut(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	n := NewNotifier(log)

	a, cancelA := n.Subscribe(4)
	b, cancelB := n.Subscribe(4)
	defer cancelB()

	ev := n.Emit(KindMotor, "No ACK from motor")
	assert.Equal(t, ev.Severity, SeverityWarning)

	gotA := <-a
	gotB := <-b
	assert.Equal(t, gotA.ID, ev.ID)
	assert.Equal(t, gotB.Message, "No ACK from motor")
	assert.Equal(t, gotB.Device, KindMotor)

	cancelA()
	cancelA()
	_, open := <-a
	assert.Assert(t, !open)

	n.Emit(KindIMU, "IMU connected on COM5@115200")
	assert.Equal(t, (<-b).Device, KindIMU)
}

func TestNotifier_DropsWhenFull(t *testing.T) {
	n := NewNotifier(nil)
	ch, cancel := n.Subscribe(1)
	defer cancel()

	n.Emit(KindAmbient, "first")
	n.Emit(KindAmbient, "second")
	assert.Equal(t, (<-ch).Message, "first")
	assert.Equal(t, len(ch), 0)
}

func TestNotifier_NilIsSafe(t *testing.T) {
	var n *Notifier
	o := n.Report(KindTemperature, Failed(errors.New("boom"), "Set fail: %v", "boom"))
	assert.Assert(t, !o.OK)
	assert.Equal(t, o.Message, "Set fail: boom")
}

func TestPoll_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Poll(ctx, time.Millisecond, func(context.Context) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	assert.Assert(t, errors.Is(err, context.Canceled))
	assert.Equal(t, calls, 3)

	err = Poll(ctx, time.Millisecond, func(context.Context) {
		t.Fatal("called after cancel")
	})
	assert.Assert(t, errors.Is(err, context.Canceled))
}
