// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package azmotor

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/checksum"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport/transporttest"
)

// controller answers reads with 0x00001234 and acknowledges moves
func controller(p *transporttest.Port, req []byte) {
	switch req[1] {
	case 0x03:
		p.Feed(checksum.AppendModbusCRC([]byte{SLAVE_ID, 0x03, 0x04, 0x00, 0x00, 0x12, 0x34}))
	case 0x10:
		p.Feed(checksum.AppendModbusCRC(append([]byte(nil), req[:6]...)))
	}
}

// onlyAt builds an opener whose controller only answers at one baud rate
func onlyAt(baud int) *transporttest.Opener {
	return &transporttest.Opener{
		Make: func(name string, mode transport.Mode) (*transporttest.Port, error) {
			p := transporttest.New()
			if mode.BaudRate == baud {
				p.OnWrite = controller
			}
			return p, nil
		},
	}
}

func TestProbeFrame(t *testing.T) {
	assert.DeepEqual(t, ProbeFrame(), []byte{0x02, 0x03, 0x00, 0x58, 0x00, 0x02, 0x45, 0xEB})
}

func TestMoveFrame_Layout(t *testing.T) {
	frame := MoveFrame(45)
	assert.Equal(t, len(frame), 45)
	assert.DeepEqual(t, frame[:7], []byte{0x02, 0x10, 0x00, 0x58, 0x00, 0x12, 0x24})

	data := frame[7 : len(frame)-2]
	assert.Equal(t, len(data), 36)

	words := make([]uint32, 9)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(data[i*4:])
	}
	assert.DeepEqual(t, words, []uint32{1, 1, 45, 10000, 8000, 8000, 1000, 1, 1})

	// library CRC agrees with ours, low byte first
	assert.DeepEqual(t, frame, checksum.AppendModbusCRC(append([]byte(nil), frame[:len(frame)-2]...)))
	assert.Equal(t, checksum.ModbusCRC16(frame), uint16(0))
}

func TestMoveFrame_AngleRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		angle    int64
		expected int32
	}{
		{"45 degrees", 45, 45},
		{"zero", 0, 0},
		{"negative", -90, -90},
		{"int32 max", math.MaxInt32, math.MaxInt32},
		{"2^31 clamps", 1 << 31, 0x7FFFFFFF},
		{"far below range clamps", -(1 << 40), math.MinInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MoveTarget(MoveFrame(tt.angle))
			assert.NilError(t, err)
			assert.Equal(t, got, tt.expected)
		})
	}

	raw := MoveFrame(1 << 31)
	assert.DeepEqual(t, raw[15:19], []byte{0x7F, 0xFF, 0xFF, 0xFF})

	_, err := MoveTarget(ProbeFrame())
	assert.ErrorContains(t, err, "move frame length")
}

func TestIsMoveAck(t *testing.T) {
	assert.Assert(t, IsMoveAck([]byte{2, 0x10, 0, 0x58, 0, 0x12}))
	assert.Assert(t, !IsMoveAck([]byte{2, 0x10, 0, 0x58, 0}))
	assert.Assert(t, !IsMoveAck([]byte{2, 0x90, 0x02, 0xCD, 0xC1, 0x00}))
	assert.Assert(t, !IsMoveAck(nil))
}

func TestDiscover_OnlyAnswersAt57600(t *testing.T) {
	opener := onlyAt(57600)

	d, err := Discover(context.Background(), opener.Open, "COM3", BaudRates, nil)
	assert.NilError(t, err)
	assert.Assert(t, d.Found)
	assert.Equal(t, d.Baud, 57600)
	assert.Equal(t, len(d.Attempts), 4)

	ports := opener.Opened()
	assert.Equal(t, len(ports), 4)
	for i, p := range ports {
		assert.Equal(t, p.Mode.BaudRate, BaudRates[i])
		assert.Equal(t, p.Mode.Framing(), "8E1")
		assert.Equal(t, p.Mode.ReadTimeout, READ_TIMEOUT)
		assert.DeepEqual(t, p.Written(), ProbeFrame())
		assert.Equal(t, p.Resets(), 1)
		if p.Mode.BaudRate == 57600 {
			assert.Assert(t, !p.Closed())
			assert.Assert(t, d.Port == transport.Port(p))
		} else {
			assert.Assert(t, p.Closed(), "port at %d left open", p.Mode.BaudRate)
		}
	}
}

func TestDiscover_NotFound(t *testing.T) {
	opener := onlyAt(0)

	d, err := Discover(context.Background(), opener.Open, "COM3", BaudRates, nil)
	assert.NilError(t, err)
	assert.Assert(t, !d.Found)
	assert.Assert(t, d.Port == nil)

	ports := opener.Opened()
	assert.Equal(t, len(ports), len(BaudRates))
	for _, p := range ports {
		assert.Assert(t, p.Closed())
	}
}

func TestDiscover_SkipsOpenFailures(t *testing.T) {
	inner := onlyAt(19200)
	opener := &transporttest.Opener{
		Make: func(name string, mode transport.Mode) (*transporttest.Port, error) {
			if mode.BaudRate == 9600 {
				return nil, errors.New("busy")
			}
			return inner.Make(name, mode)
		},
	}

	d, err := Discover(context.Background(), opener.Open, "COM3", BaudRates, nil)
	assert.NilError(t, err)
	assert.Equal(t, d.Baud, 19200)
	assert.ErrorContains(t, d.Attempts[0].Err, "busy")
	assert.Equal(t, len(opener.Opened()), 1)
}

func TestDiscover_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opener := onlyAt(57600)
	_, err := Discover(ctx, opener.Open, "COM3", BaudRates, nil)
	assert.Assert(t, errors.Is(err, context.Canceled))
	assert.Equal(t, len(opener.Opened()), 0)
}

func TestSession_ConnectAndMove(t *testing.T) {
	opener := onlyAt(115200)
	n := device.NewNotifier(nil)
	events, cancel := n.Subscribe(8)
	defer cancel()

	s := NewSession(opener.Open, n)
	out := s.Connect(context.Background(), device.Endpoint{Port: "COM3"})
	assert.Assert(t, out.OK, out.Message)
	assert.Equal(t, out.Message, "Motor connected on COM3 at 115200 baud.")
	assert.Equal(t, s.Baud(), 115200)
	<-events

	out = s.Move(context.Background(), 45)
	assert.Assert(t, out.OK, out.Message)
	assert.Equal(t, out.Message, "Motor moved to 45°")
	assert.Equal(t, (<-events).Severity, device.SeverityInfo)

	port := opener.Opened()[4]
	got, err := MoveTarget(port.Written()[len(ProbeFrame()):])
	assert.NilError(t, err)
	assert.Equal(t, got, int32(45))

	assert.NilError(t, s.Disconnect())
	assert.Assert(t, port.Closed())
	assert.Assert(t, errors.Is(s.Disconnect(), ErrNotConnected))
}

func TestSession_ConnectNoResponse(t *testing.T) {
	s := NewSession(onlyAt(0).Open, nil)
	out := s.Connect(context.Background(), device.Endpoint{Port: "COM3"})
	assert.Assert(t, !out.OK)
	assert.Equal(t, out.Message, "No response from motor on COM3.")
	assert.Equal(t, device.Classify(out.Message), device.SeverityError)
	assert.Assert(t, !s.IsConnected())
}

func TestSession_ExplicitBaud(t *testing.T) {
	opener := onlyAt(9600)
	s := NewSession(opener.Open, nil)
	out := s.Connect(context.Background(), device.Endpoint{Port: "COM3", Baud: 9600})
	assert.Assert(t, out.OK)
	assert.Equal(t, len(opener.Opened()), 1)
}

func TestSession_MoveWithoutAck(t *testing.T) {
	opener := onlyAt(9600)
	s := NewSession(opener.Open, nil)
	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM3"}).OK)

	port := opener.Opened()[0]
	port.OnWrite = func(p *transporttest.Port, req []byte) {
		p.Feed(checksum.AppendModbusCRC([]byte{SLAVE_ID, 0x90, 0x02}))
	}

	out := s.Move(context.Background(), 10)
	assert.Assert(t, !out.OK)
	assert.Equal(t, out.Message, "No ACK from motor")
	assert.Assert(t, errors.Is(out.Err, ErrNoAck))
	assert.Equal(t, device.Classify(out.Message), device.SeverityWarning)
	assert.Assert(t, s.IsConnected())
}

func TestSession_MoveTransportErrorKeepsConnection(t *testing.T) {
	opener := onlyAt(9600)
	s := NewSession(opener.Open, nil)
	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM3"}).OK)

	opener.Opened()[0].FailReads(errors.New("framing error"))
	out := s.Move(context.Background(), 10)
	assert.Assert(t, !out.OK)
	assert.Equal(t, out.Message, "Motor move failed: read: framing error")
	assert.Equal(t, device.Classify(out.Message), device.SeverityError)
	assert.Assert(t, s.IsConnected())
}

func TestSession_MoveValidation(t *testing.T) {
	s := NewSession(onlyAt(9600).Open, nil)

	out := s.Move(context.Background(), 10)
	assert.Equal(t, out.Message, "Motor not connected")
	assert.Equal(t, device.Classify(out.Message), device.SeverityWarning)

	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM3"}).OK)
	before := len(s.port.(*transporttest.Port).Written())

	out = s.Send(context.Background(), "ninety")
	assert.Assert(t, !out.OK)
	assert.Equal(t, out.Message, `Invalid angle: "ninety"`)
	assert.Equal(t, len(s.port.(*transporttest.Port).Written()), before)

	out = s.Send(context.Background(), " -30 ")
	assert.Assert(t, out.OK, out.Message)
	assert.Equal(t, out.Message, "Motor moved to -30°")
}

func TestSession_OperationData(t *testing.T) {
	s := NewSession(onlyAt(38400).Open, nil)
	_, err := s.OperationData()
	assert.Assert(t, errors.Is(err, ErrNotConnected))

	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM3"}).OK)
	v, err := s.OperationData()
	assert.NilError(t, err)
	assert.Equal(t, v, uint32(0x1234))
}

func TestSession_ReadRegistersRejectsBadCRC(t *testing.T) {
	opener := onlyAt(9600)
	s := NewSession(opener.Open, nil)
	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM3"}).OK)

	opener.Opened()[0].OnWrite = func(p *transporttest.Port, req []byte) {
		p.Feed([]byte{SLAVE_ID, 0x03, 0x04, 0x00, 0x00, 0x12, 0x34, 0x00, 0x00})
	}
	_, err := s.ReadRegisters(REG_DIRECT_OPERATION, 2)
	assert.ErrorContains(t, err, "crc")
}
