// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package filterwheel drives a line-oriented ASCII filter wheel: every
// command is followed by a position query whose reply is parsed for digits.
package filterwheel

import (
	"fmt"
	"strconv"
	"strings"
)

// ResultKind classifies a reply
type ResultKind int

const (
	// ResultPosition means the reply contained a position
	ResultPosition ResultKind = iota
	// ResultUnknown means a reply arrived but held no digits
	ResultUnknown
	// ResultNoResponse means nothing arrived before the timeout
	ResultNoResponse
)

func (k ResultKind) String() string {
	switch k {
	case ResultPosition:
		return "position"
	case ResultUnknown:
		return "unknown"
	default:
		return "no-response"
	}
}

// Result is a parsed reply. Position is only meaningful for ResultPosition.
type Result struct {
	Kind     ResultKind
	Position int
	Raw      string
}

// ParseResponse joins every decimal digit in the reply into the position.
// Surrounding whitespace and line endings are ignored.
func ParseResponse(raw string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Kind: ResultNoResponse}
	}

	var digits strings.Builder
	for _, c := range text {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return Result{Kind: ResultUnknown, Raw: text}
	}
	pos, err := strconv.Atoi(digits.String())
	if err != nil {
		return Result{Kind: ResultUnknown, Raw: text}
	}
	return Result{Kind: ResultPosition, Position: pos, Raw: text}
}

// Message renders the status line for the reply to cmd
func Message(cmd string, r Result) string {
	switch r.Kind {
	case ResultNoResponse:
		return "No response from filter wheel (timeout)."
	case ResultUnknown:
		return "Received: " + r.Raw
	}
	switch {
	case strings.HasSuffix(cmd, "r"):
		return fmt.Sprintf("Filter wheel reset to position %d.", r.Position)
	case cmd == QUERY:
		return fmt.Sprintf("Filter wheel is at position %d.", r.Position)
	default:
		return fmt.Sprintf("Filter wheel moved to position %d.", r.Position)
	}
}
