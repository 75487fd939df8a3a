// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

// Decoder is a sliding-window frame synchroniser. It never blocks and never
// fails: bytes that cannot start a valid frame are dropped one at a time.
type Decoder struct {
	window    []byte
	discarded uint64
}

// NewDecoder creates an empty decoder
func NewDecoder() *Decoder {
	return &Decoder{window: make([]byte, 0, FRAME_SIZE)}
}

// Reset drops any partial frame
func (d *Decoder) Reset() {
	d.window = d.window[:0]
}

// Discarded returns the number of bytes dropped while resynchronising
func (d *Decoder) Discarded() uint64 {
	return d.discarded
}

// Feed appends one byte. Once a full window is buffered it either yields the
// frame and clears the window, or drops the oldest byte.
func (d *Decoder) Feed(b byte) (Frame, bool) {
	d.window = append(d.window, b)
	if len(d.window) < FRAME_SIZE {
		return Frame{}, false
	}

	f, err := ParseFrame(d.window)
	if err != nil {
		copy(d.window, d.window[1:])
		d.window = d.window[:FRAME_SIZE-1]
		d.discarded++
		return Frame{}, false
	}
	d.window = d.window[:0]
	return f, true
}

// Write feeds a chunk of bytes and returns every frame completed by it
func (d *Decoder) Write(p []byte) []Frame {
	var frames []Frame
	for _, b := range p {
		if f, ok := d.Feed(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}
