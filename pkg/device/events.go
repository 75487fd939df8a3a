// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package device

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Severity of a status message
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

var (
	errorKeywords   = []string{"fail", "error", "no response", "cannot"}
	warningKeywords = []string{"no ack", "invalid", "not connected", "not ready"}
)

// Classify derives the severity of a status message from its wording.
// Session messages are phrased so this keyword match holds.
func Classify(message string) Severity {
	lower := strings.ToLower(message)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			return SeverityError
		}
	}
	for _, kw := range warningKeywords {
		if strings.Contains(lower, kw) {
			return SeverityWarning
		}
	}
	return SeverityInfo
}

// Event is one status message on the notification stream
type Event struct {
	ID       uuid.UUID
	Time     time.Time
	Device   Kind
	Message  string
	Severity Severity
}

// Notifier fans status events out to subscribers and the log.
// A nil *Notifier discards everything.
type Notifier struct {
	log logrus.FieldLogger

	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// NewNotifier creates a notifier that also logs every event to log
func NewNotifier(log logrus.FieldLogger) *Notifier {
	return &Notifier{
		log:  log,
		subs: make(map[int]chan Event),
	}
}

// Subscribe returns a channel receiving future events and a cancel func.
// Slow subscribers lose events rather than stalling sessions.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}

// Emit classifies and publishes a status message for kind
func (n *Notifier) Emit(kind Kind, message string) Event {
	ev := Event{
		ID:       uuid.New(),
		Time:     time.Now(),
		Device:   kind,
		Message:  message,
		Severity: Classify(message),
	}
	if n == nil {
		return ev
	}

	if n.log != nil {
		entry := n.log.WithField("device", kind.String())
		switch ev.Severity {
		case SeverityError:
			entry.Error(message)
		case SeverityWarning:
			entry.Warn(message)
		default:
			entry.Info(message)
		}
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Logger returns a logger tagged with the device kind, for diagnostics that
// are not status messages
func (n *Notifier) Logger(kind Kind) logrus.FieldLogger {
	if n == nil || n.log == nil {
		return discard.WithField("device", kind.String())
	}
	return n.log.WithField("device", kind.String())
}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Report emits the outcome's message and returns the outcome unchanged
func (n *Notifier) Report(kind Kind, o Outcome) Outcome {
	n.Emit(kind, o.Message)
	return o
}
