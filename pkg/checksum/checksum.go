// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package checksum provides the frame checks shared by the bench device codecs:
// the Modbus RTU CRC-16 and the 8-bit ASCII sum used by the TC-36-25 controller.
package checksum

import "fmt"

// Modbus CRC-16 configuration (reflected 0x8005)
const (
	crcPolynomial = 0xA001
	crcInitial    = 0xFFFF
)

var crcTable = makeCRCTable()

// ModbusCRC16 computes the Modbus RTU CRC-16 of data, bit by bit, LSB first
func ModbusCRC16(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPolynomial
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// ModbusCRC16Table computes the same CRC as ModbusCRC16 using a lookup table
func ModbusCRC16Table(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc = (crc >> 8) ^ crcTable[byte(crc)^b]
	}
	return crc
}

// AppendModbusCRC appends the CRC of data in wire order (low byte first)
func AppendModbusCRC(data []byte) []byte {
	crc := ModbusCRC16(data)
	return append(data, byte(crc), byte(crc>>8))
}

func makeCRCTable() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPolynomial
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

// ASCIISum returns the mod-256 sum of the bytes of payload
func ASCIISum(payload string) uint8 {
	var sum uint8
	for i := 0; i < len(payload); i++ {
		sum += payload[i]
	}
	return sum
}

// ASCIIChecksum returns the mod-256 byte sum of payload as two lowercase hex digits
func ASCIIChecksum(payload string) string {
	return fmt.Sprintf("%02x", ASCIISum(payload))
}
