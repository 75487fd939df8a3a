// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package azmotor

import (
	"fmt"

	"github.com/goburrow/modbus"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
)

// portTransporter carries RTU ADUs over a session's port
type portTransporter struct {
	port transport.Port
}

// Send writes one request and reads exactly one response ADU
func (t portTransporter) Send(adu []byte) ([]byte, error) {
	if err := t.port.ResetInputBuffer(); err != nil {
		return nil, err
	}
	if _, err := t.port.Write(adu); err != nil {
		return nil, err
	}

	head, err := transport.ReadAtMost(t.port, 3)
	if err != nil {
		return head, err
	}
	if len(head) < 3 {
		return head, fmt.Errorf("modbus: response timeout after %d bytes", len(head))
	}

	rest, err := transport.ReadAtMost(t.port, responseLength(head)-len(head))
	resp := append(head, rest...)
	if err != nil {
		return resp, err
	}
	if n := responseLength(head); len(resp) < n {
		return resp, fmt.Errorf("modbus: short response, got %d of %d bytes", len(resp), n)
	}
	return resp, nil
}

// responseLength derives the full ADU length from its first three bytes
func responseLength(head []byte) int {
	fc := head[1]
	switch {
	case fc&0x80 != 0:
		return 5
	case fc == modbus.FuncCodeReadHoldingRegisters, fc == modbus.FuncCodeReadInputRegisters:
		return 3 + int(head[2]) + 2
	default:
		return 8
	}
}

// rtuHandler pairs the library's RTU packager with our transport
type rtuHandler struct {
	modbus.Packager
	modbus.Transporter
}

func newClient(port transport.Port) modbus.Client {
	return modbus.NewClient(&rtuHandler{
		Packager:    packager(),
		Transporter: portTransporter{port: port},
	})
}
