package dcc

import (
	"fmt"

	"github.com/keskad/trackctl/pkgs/hal"
)

// Bit is a single DCC line bit, encoded as the NMRA biphase-mark timing:
// "One" toggles the line twice in quick succession, "Zero" toggles it twice
// more slowly.
type Bit int

const (
	Zero Bit = iota
	One
)

// HalfPeriodMicros returns the duration of one half-bit cell for this bit
// value: 58 microseconds for One, 100 microseconds for Zero, per NMRA S-9.1.
func (b Bit) HalfPeriodMicros() uint32 {
	if b == One {
		return 58
	}
	return 100
}

type encodeState int

const (
	encIdle encodeState = iota
	encWaitFirstHalf
	encWaitSecondHalf
)

// Encoder is the line-level biphase encoder: it drives a ToggleableOutputPin
// through the two half-periods of one bit cell per call to Tick, returning
// hal.ErrWouldBlock until the cell is complete. It is generic over the pin
// and timer capabilities so it never allocates an interface value on the
// hot path.
type Encoder[P hal.ToggleableOutputPin, T hal.CountDown] struct {
	pin   P
	timer T
	state encodeState
	bit   Bit
}

// NewEncoder builds a line encoder bound to a concrete pin and timer.
func NewEncoder[P hal.ToggleableOutputPin, T hal.CountDown](pin P, timer T) *Encoder[P, T] {
	return &Encoder[P, T]{pin: pin, timer: timer, state: encIdle}
}

// Tick advances the encoding of bit by one step. The caller must keep
// passing the same bit value until Tick returns nil; passing a different
// value while a cell is in progress is a programming error and returns one
// immediately without touching the pin.
func (e *Encoder[P, T]) Tick(bit Bit) error {
	switch e.state {
	case encIdle:
		e.bit = bit
		if err := e.pin.Toggle(); err != nil {
			return fmt.Errorf("dcc: encoder toggle: %w", err)
		}
		e.timer.Start(bit.HalfPeriodMicros())
		e.state = encWaitFirstHalf
		return hal.ErrWouldBlock

	case encWaitFirstHalf:
		if bit != e.bit {
			return fmt.Errorf("dcc: encoder bit changed mid-cell")
		}
		if err := e.timer.Wait(); err != nil {
			return err
		}
		if err := e.pin.Toggle(); err != nil {
			return fmt.Errorf("dcc: encoder toggle: %w", err)
		}
		e.timer.Start(bit.HalfPeriodMicros())
		e.state = encWaitSecondHalf
		return hal.ErrWouldBlock

	case encWaitSecondHalf:
		if bit != e.bit {
			return fmt.Errorf("dcc: encoder bit changed mid-cell")
		}
		if err := e.timer.Wait(); err != nil {
			return err
		}
		e.state = encIdle
		return nil

	default:
		return fmt.Errorf("dcc: encoder in unknown state %d", e.state)
	}
}
