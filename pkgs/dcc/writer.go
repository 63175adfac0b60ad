package dcc

import (
	"fmt"

	"github.com/keskad/trackctl/pkgs/hal"
)

// MinPreambleBits is the minimum number of "One" bits required before the
// first packet byte, per NMRA S-9.1.
const MinPreambleBits = 14

type writerState int

const (
	wIdle writerState = iota
	wPreamble
	wStartBit
	wDataBit
	wEndBit
)

// Writer is the packet-layer DCC transmitter: it takes a fully serialized
// packet (see Serialize) and frames it onto the line through an Encoder.
// Each call to Tick invokes the line encoder exactly once, advancing the
// current bit cell by one encoder step — callers drive it
// to completion by calling Tick repeatedly until it returns nil, exactly
// the way the command-station scheduler's round-robin loop expects.
type Writer[P hal.ToggleableOutputPin, T hal.CountDown] struct {
	enc           *Encoder[P, T]
	preambleBits  int
	payload       []byte
	byteIdx       int
	bitIdx        int
	preambleCount int
	state         writerState
}

// NewWriter builds a packet writer. preambleBits must be at least
// MinPreambleBits; values below that are raised to it.
func NewWriter[P hal.ToggleableOutputPin, T hal.CountDown](pin P, timer T, preambleBits int) *Writer[P, T] {
	if preambleBits < MinPreambleBits {
		preambleBits = MinPreambleBits
	}
	return &Writer[P, T]{enc: NewEncoder[P, T](pin, timer), preambleBits: preambleBits, state: wIdle}
}

// BeginPacket arms the writer with a new payload. It fails if a previous
// packet is still in flight.
func (w *Writer[P, T]) BeginPacket(payload []byte) error {
	if w.state != wIdle {
		return fmt.Errorf("dcc: writer busy with a packet already in flight")
	}
	if len(payload) == 0 {
		return fmt.Errorf("dcc: empty payload")
	}
	w.payload = payload
	w.byteIdx = 0
	w.bitIdx = 7
	w.preambleCount = 0
	w.state = wPreamble
	return nil
}

// Tick drives the writer by one encoder step. It returns hal.ErrWouldBlock while
// the packet is still in flight, nil once the whole packet (preamble
// through the final stop bit) has gone out, and any other error verbatim
// from the underlying encoder/pin/timer.
func (w *Writer[P, T]) Tick() error {
	switch w.state {
	case wIdle:
		return fmt.Errorf("dcc: writer idle, call BeginPacket first")

	case wPreamble:
		if err := w.enc.Tick(One); err != nil {
			if err != hal.ErrWouldBlock {
				return err
			}
			return hal.ErrWouldBlock
		}
		w.preambleCount++
		if w.preambleCount >= w.preambleBits {
			w.state = wStartBit
		}
		return hal.ErrWouldBlock

	case wStartBit:
		if err := w.enc.Tick(Zero); err != nil {
			if err != hal.ErrWouldBlock {
				return err
			}
			return hal.ErrWouldBlock
		}
		w.bitIdx = 7
		w.state = wDataBit
		return hal.ErrWouldBlock

	case wDataBit:
		bit := bitFromByte(w.payload[w.byteIdx], w.bitIdx)
		if err := w.enc.Tick(bit); err != nil {
			if err != hal.ErrWouldBlock {
				return err
			}
			return hal.ErrWouldBlock
		}
		w.bitIdx--
		if w.bitIdx < 0 {
			w.byteIdx++
			if w.byteIdx >= len(w.payload) {
				w.state = wEndBit
			} else {
				w.state = wStartBit
			}
		}
		return hal.ErrWouldBlock

	case wEndBit:
		if err := w.enc.Tick(One); err != nil {
			if err != hal.ErrWouldBlock {
				return err
			}
			return hal.ErrWouldBlock
		}
		w.state = wIdle
		return nil

	default:
		return fmt.Errorf("dcc: writer in unknown state %d", w.state)
	}
}

// Busy reports whether a packet is currently in flight.
func (w *Writer[P, T]) Busy() bool {
	return w.state != wIdle
}

func bitFromByte(b byte, idx int) Bit {
	if (b>>uint(idx))&1 == 1 {
		return One
	}
	return Zero
}
