package susi

import (
	"fmt"

	"github.com/keskad/trackctl/pkgs/hal"
)

// HalfClockPeriodMicros is half of one SUSI clock period: the master holds
// each clock phase for this long before switching it.
const HalfClockPeriodMicros = 200

// AckWindowMicros is how long the master waits, after the last data bit of
// an ACK-needing message, before sampling the DATA line for a response.
const AckWindowMicros = 2000

// AckResult reports the outcome of the ACK phase following a CV
// programming message.
type AckResult int

const (
	AckNone AckResult = iota
	Ack
	Nack
)

// DataPin is the bidirectional, open-drain SUSI data line: the master both
// drives it (to send bits) and samples it (to read an ACK/NACK back).
type DataPin interface {
	hal.OutputPin
	hal.InputPin
}

type writerState int

const (
	wrIdle writerState = iota
	wrWriting
	wrWaiting
	wrWaitingForAck
)

// Writer is the SUSI bus master: it drives the CLK line push-pull and the
// DATA line open-drain, sending one bit per falling clock edge, LSB first
// within each byte, and completing with an ACK phase for messages that
// need one (resolving spec Open Question #4 — the original left this
// unimplemented).
type Writer[D DataPin, C hal.OutputPin, T hal.CountDown] struct {
	pinData D
	pinClk  C
	timer   T

	buf         [3]byte
	lastClk     bool
	bitsWritten uint8
	msgLen      uint8

	state writerState
}

// NewWriter builds a bus master bound to concrete data/clock pins and a
// timer. The clock line starts low.
func NewWriter[D DataPin, C hal.OutputPin, T hal.CountDown](pinData D, pinClk C, timer T) (*Writer[D, C, T], error) {
	if err := pinClk.SetLow(); err != nil {
		return nil, fmt.Errorf("susi: writer init clock line: %w", err)
	}
	return &Writer[D, C, T]{pinData: pinData, pinClk: pinClk, timer: timer, state: wrIdle}, nil
}

func (w *Writer[D, C, T]) reset() {
	w.buf = [3]byte{}
	w.bitsWritten = 0
	w.state = wrIdle
}

// Write sends msg onto the bus, advancing by one step (at most one clock
// line change or one timer check) per call. The caller must keep
// passing the same msg on every call until Write stops returning
// hal.ErrWouldBlock.
func (w *Writer[D, C, T]) Write(msg Msg) (AckResult, error) {
	switch w.state {
	case wrIdle:
		buf, err := msg.ToBytes()
		if err != nil {
			return AckNone, err
		}
		w.buf = buf
		w.msgLen = uint8(msg.Len())
		w.state = wrWriting
		return AckNone, hal.ErrWouldBlock

	case wrWriting, wrWaiting:
		if w.state == wrWaiting {
			if err := w.timer.Wait(); err != nil {
				return AckNone, err
			}
			w.state = wrWriting
			if w.bitsWritten == w.msgLen*8 {
				if msg.NeedsAck() {
					if err := w.pinData.SetLow(); err != nil { // release DATA to the external pull-up
						return AckNone, fmt.Errorf("susi: writer releasing data line: %w", err)
					}
					w.timer.Start(AckWindowMicros)
					w.state = wrWaitingForAck
					return AckNone, hal.ErrWouldBlock
				}
				w.reset()
				return AckNone, nil
			}
		}

		if w.lastClk {
			// clock was high: drop it so receivers sample DATA on this
			// falling edge.
			if err := w.pinClk.SetLow(); err != nil {
				return AckNone, fmt.Errorf("susi: writer clock line: %w", err)
			}
			w.lastClk = false
			w.bitsWritten++
			w.timer.Start(HalfClockPeriodMicros)
			w.state = wrWaiting
		} else {
			// clock was low: raise it and prepare the next data bit.
			if err := w.pinClk.SetHigh(); err != nil {
				return AckNone, fmt.Errorf("susi: writer clock line: %w", err)
			}
			w.lastClk = true
			byteVal := w.buf[w.bitsWritten/8]
			mask := byte(1) << (w.bitsWritten % 8)
			isOne := byteVal&mask == mask
			// open-drain DATA: SetLow leaves it released (external pull-up
			// reads "1"); SetHigh actively pulls it down (reads "0").
			var err error
			if isOne {
				err = w.pinData.SetLow()
			} else {
				err = w.pinData.SetHigh()
			}
			if err != nil {
				return AckNone, fmt.Errorf("susi: writer data line: %w", err)
			}
			w.timer.Start(HalfClockPeriodMicros)
			w.state = wrWaiting
		}
		return AckNone, hal.ErrWouldBlock

	case wrWaitingForAck:
		if err := w.timer.Wait(); err != nil {
			return AckNone, err
		}
		high, err := w.pinData.IsHigh()
		if err != nil {
			return AckNone, fmt.Errorf("susi: writer sampling ack: %w", err)
		}
		w.reset()
		if high {
			return Nack, nil
		}
		return Ack, nil

	default:
		return AckNone, fmt.Errorf("susi: writer in unknown state %d", w.state)
	}
}

// Busy reports whether a message is still in flight.
func (w *Writer[D, C, T]) Busy() bool {
	return w.state != wrIdle
}
