// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package filterwheel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport/transporttest"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		raw      string
		kind     ResultKind
		position int
		message  string
	}{
		{"POS03", ResultPosition, 3, "Filter wheel is at position 3."},
		{"5\r\n", ResultPosition, 5, "Filter wheel is at position 5."},
		{"F1 pos 2", ResultPosition, 12, "Filter wheel is at position 12."},
		{"OK", ResultUnknown, 0, "Received: OK"},
		{"  ERR?\r", ResultUnknown, 0, "Received: ERR?"},
		{"", ResultNoResponse, 0, "No response from filter wheel (timeout)."},
		{"\r\n", ResultNoResponse, 0, "No response from filter wheel (timeout)."},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := ParseResponse(tt.raw)
			assert.Equal(t, r.Kind, tt.kind)
			assert.Equal(t, r.Position, tt.position)
			assert.Equal(t, Message(QUERY, r), tt.message)
		})
	}
}

func TestMessage_ByCommand(t *testing.T) {
	r := ParseResponse("4")
	assert.Equal(t, Message("F1r", r), "Filter wheel reset to position 4.")
	assert.Equal(t, Message("F14", r), "Filter wheel moved to position 4.")
	assert.Equal(t, Message("?", r), "Filter wheel is at position 4.")

	assert.Equal(t, device.Classify(Message("?", ParseResponse(""))), device.SeverityError)
	assert.Equal(t, device.Classify(Message("?", ParseResponse("OK"))), device.SeverityInfo)
}

// wheel replies to every "?" with its position
func wheel(position *int) func(p *transporttest.Port, data []byte) {
	return func(p *transporttest.Port, data []byte) {
		cmd := strings.TrimSuffix(string(data), "\r")
		switch {
		case cmd == "?":
			p.FeedString("P" + string(rune('0'+*position)) + "\r\n")
		case cmd == "F1r":
			*position = 1
			p.FeedString("ok\r\n")
		case strings.HasPrefix(cmd, "F1") && len(cmd) == 3:
			*position = int(cmd[2] - '0')
			p.FeedString("ok\r\n")
		}
	}
}

func newSession(t *testing.T, setup func(p *transporttest.Port)) (*Session, *transporttest.Opener) {
	t.Helper()
	opener := &transporttest.Opener{
		Make: func(string, transport.Mode) (*transporttest.Port, error) {
			p := transporttest.New()
			setup(p)
			return p, nil
		},
	}
	s := NewSession(opener.Open, nil)
	s.SettleDelay = 0
	return s, opener
}

func TestSession_ConnectHomesWheel(t *testing.T) {
	position := 4
	s, opener := newSession(t, func(p *transporttest.Port) { p.OnWrite = wheel(&position) })

	n := device.NewNotifier(nil)
	s.notifier = n
	events, cancel := n.Subscribe(4)
	defer cancel()

	out := s.Connect(context.Background(), device.Endpoint{Port: "COM17"})
	assert.Assert(t, out.OK)
	assert.Equal(t, out.Message, "Filter wheel connected on COM17")

	assert.Equal(t, (<-events).Message, "Filter wheel connected on COM17")
	assert.Equal(t, (<-events).Message, "Filter wheel reset to position 1.")

	port := opener.Opened()[0]
	assert.Equal(t, port.Mode.String(), "4800 8N1")
	assert.Equal(t, string(port.Written()), "F1r\r?\r")
	assert.Equal(t, port.Resets(), 2)

	pos, known := s.Position()
	assert.Assert(t, known)
	assert.Equal(t, pos, 1)
}

func TestSession_MoveAndQuery(t *testing.T) {
	position := 1
	s, opener := newSession(t, func(p *transporttest.Port) { p.OnWrite = wheel(&position) })
	s.HomeOnConnect = false
	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM17"}).OK)

	out := s.Goto(context.Background(), 5)
	assert.Assert(t, out.OK, out.Message)
	assert.Equal(t, out.Message, "Filter wheel moved to position 5.")

	out = s.Send(context.Background(), "?")
	assert.Equal(t, out.Message, "Filter wheel is at position 5.")

	// a query is a single write with no settle and no follow-up query
	assert.Equal(t, string(opener.Opened()[0].Written()), "F15\r?\r?\r")

	pos, _ := s.Position()
	assert.Equal(t, pos, 5)

	out = s.Goto(context.Background(), 12)
	assert.Assert(t, !out.OK)
	assert.Equal(t, device.Classify(out.Message), device.SeverityWarning)
}

func TestSession_UnknownAndNoResponse(t *testing.T) {
	var reply string
	s, _ := newSession(t, func(p *transporttest.Port) {
		p.OnWrite = func(p *transporttest.Port, data []byte) {
			if string(data) == "?\r" && reply != "" {
				p.FeedString(reply)
			}
		}
	})
	s.HomeOnConnect = false
	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM17"}).OK)

	reply = "OK\r\n"
	out := s.Send(context.Background(), "?")
	assert.Assert(t, out.OK)
	assert.Equal(t, out.Message, "Received: OK")
	_, known := s.Position()
	assert.Assert(t, !known)

	reply = ""
	out = s.Send(context.Background(), "?")
	assert.Assert(t, !out.OK)
	assert.Equal(t, out.Message, "No response from filter wheel (timeout).")
	assert.Assert(t, errors.Is(out.Err, ErrNoResponse))
	assert.Assert(t, s.IsConnected())
}

func TestSession_SerialErrorClosesPort(t *testing.T) {
	s, opener := newSession(t, func(p *transporttest.Port) {})
	s.HomeOnConnect = false
	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM17"}).OK)

	port := opener.Opened()[0]
	port.FailReads(errors.New("device reports readiness to read but returned no data"))

	out := s.Send(context.Background(), "?")
	assert.Assert(t, !out.OK)
	assert.Assert(t, strings.HasPrefix(out.Message, "Serial error: "))
	assert.Equal(t, device.Classify(out.Message), device.SeverityError)
	assert.Assert(t, !s.IsConnected())
	assert.Assert(t, port.Closed())

	out = s.Send(context.Background(), "?")
	assert.Equal(t, out.Message, "Filter wheel not connected")
	assert.Equal(t, device.Classify(out.Message), device.SeverityWarning)
}

func TestSession_OpenFailureAndValidation(t *testing.T) {
	opener := &transporttest.Opener{
		Make: func(string, transport.Mode) (*transporttest.Port, error) {
			return nil, errors.New("port busy")
		},
	}
	s := NewSession(opener.Open, nil)
	out := s.Connect(context.Background(), device.Endpoint{Port: "COM17"})
	assert.Equal(t, out.Message, "Failed to open COM17: port busy")
	assert.Equal(t, device.Classify(out.Message), device.SeverityError)

	_, err := s.Exchange(context.Background(), "  ")
	assert.Assert(t, errors.Is(err, ErrInvalidCommand))
	_, err = s.Exchange(context.Background(), "?")
	assert.Assert(t, errors.Is(err, ErrNotConnected))
}

func TestSession_CancelDuringSettleKeepsPort(t *testing.T) {
	position := 1
	s, opener := newSession(t, func(p *transporttest.Port) { p.OnWrite = wheel(&position) })
	s.HomeOnConnect = false
	s.SettleDelay = time.Hour
	assert.Assert(t, s.Connect(context.Background(), device.Endpoint{Port: "COM17"}).OK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Exchange(ctx, "F13")
	assert.Assert(t, errors.Is(err, context.Canceled))
	assert.Assert(t, s.IsConnected())
	assert.Assert(t, !opener.Opened()[0].Closed())
}
