// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package publish

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

type fakeBroker struct {
	mu         sync.Mutex
	published  [][]byte
	lists      map[string][][]byte
	publishErr error
	signal     chan struct{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{lists: map[string][][]byte{}, signal: make(chan struct{}, 16)}
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		cmd.SetErr(b.publishErr)
		return cmd
	}
	b.published = append(b.published, message.([]byte))
	cmd.SetVal(1)
	select {
	case b.signal <- struct{}{}:
	default:
	}
	return cmd
}

func (b *fakeBroker) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range values {
		b.lists[key] = append([][]byte{v.([]byte)}, b.lists[key]...)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(b.lists[key])))
	return cmd
}

func (b *fakeBroker) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l := b.lists[key]; int64(len(l)) > stop+1 {
		b.lists[key] = l[start : stop+1]
	}
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMessageRoundTrip_Event(t *testing.T) {
	n := device.NewNotifier(nil)
	ev := n.Emit(device.KindMotor, "No ACK from motor")

	data, err := EncodeEvent(ev)
	assert.NilError(t, err)

	msgType, payload, err := ParseMessage(data)
	assert.NilError(t, err)
	assert.Equal(t, msgType, uint8(MSG_EVENT))

	id, _ := GetMapString(payload, KEY_EVENT_ID)
	assert.Equal(t, id, ev.ID.String())
	sev, _ := GetMapString(payload, KEY_EVENT_SEVERITY)
	assert.Equal(t, sev, "WARNING")
	msg, _ := GetMapString(payload, KEY_EVENT_MESSAGE)
	assert.Equal(t, msg, "No ACK from motor")
	ts, ok := GetMapInt(payload, KEY_TIME)
	assert.Assert(t, ok)
	assert.Equal(t, ts, ev.Time.UnixMilli())
}

func TestEncodeIMU_FixPolicy(t *testing.T) {
	data, err := EncodeIMU(witmotion.Values{Pressure: 1000.5})
	assert.NilError(t, err)
	_, payload, err := ParseMessage(data)
	assert.NilError(t, err)
	_, hasLat := payload[KEY_IMU_LATITUDE]
	assert.Assert(t, !hasLat)
	p, _ := GetMapFloat(payload, KEY_IMU_PRESSURE)
	assert.Equal(t, p, 1000.5)

	data, err = EncodeIMU(witmotion.Values{HasFix: true, Latitude: 28.5, Longitude: 77.2})
	assert.NilError(t, err)
	_, payload, _ = ParseMessage(data)
	lat, _ := GetMapFloat(payload, KEY_IMU_LATITUDE)
	assert.Equal(t, lat, 28.5)
	fix, _ := GetMapBool(payload, KEY_IMU_FIX)
	assert.Assert(t, fix)
}

func TestParseMessage_Errors(t *testing.T) {
	_, _, err := ParseMessage(nil)
	assert.ErrorContains(t, err, "empty")

	_, _, err = ParseMessage([]byte{0xFF})
	assert.ErrorContains(t, err, "failed to decode CBOR")

	data, _ := EncodeMessage(MSG_AMBIENT, nil)
	msgType, payload, err := ParseMessage(data)
	assert.NilError(t, err)
	assert.Equal(t, msgType, uint8(MSG_AMBIENT))
	assert.Assert(t, payload == nil)
}

func TestPublisher_HistoryIsCapped(t *testing.T) {
	b := newFakeBroker()
	p := New(b, "bench_events", 2, quietLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NilError(t, p.Temperature(ctx, tc36.Reading{Current: float64(20 + i), Valid: true, Updated: time.Now()}))
	}
	assert.NilError(t, p.Ambient(ctx, thp.Reading{SensorID: "THP-1", Temperature: 22}))

	assert.Equal(t, len(b.published), 4)
	hist := b.lists[HistoryKey(device.KindTemperature)]
	assert.Equal(t, len(hist), 2)

	_, payload, err := ParseMessage(hist[0])
	assert.NilError(t, err)
	cur, _ := GetMapFloat(payload, KEY_TC_CURRENT)
	assert.Equal(t, cur, 22.0)
	assert.Equal(t, len(b.lists[HistoryKey(device.KindAmbient)]), 1)
}

func TestPublisher_PublishError(t *testing.T) {
	b := newFakeBroker()
	b.publishErr = errors.New("connection refused")
	p := New(b, "bench_events", 0, quietLogger())

	err := p.IMU(context.Background(), witmotion.Values{})
	assert.ErrorContains(t, err, "publish: connection refused")
	assert.Equal(t, len(b.lists), 0)
}

func TestPublisher_ForwardEvents(t *testing.T) {
	b := newFakeBroker()
	p := New(b, "bench_events", 10, quietLogger())
	n := device.NewNotifier(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := p.ForwardEvents(ctx, n)
	n.Emit(device.KindFilterWheel, "Filter wheel is at position 3.")

	select {
	case <-b.signal:
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}
	cancel()
	<-done

	b.mu.Lock()
	defer b.mu.Unlock()
	_, payload, err := ParseMessage(b.published[0])
	assert.NilError(t, err)
	dev, _ := GetMapString(payload, KEY_EVENT_DEVICE)
	assert.Equal(t, dev, "filterwheel")
	assert.Equal(t, len(b.lists[HistoryKey(device.KindFilterWheel)]), 1)
}
