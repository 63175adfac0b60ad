package dcc

import (
	"fmt"

	"github.com/keskad/trackctl/pkgs/hal"
)

// HalfBitThresholdMicros separates a "fast" half-bit transition (consistent
// with a One cell, nominally 58 microseconds) from a "slow" one (consistent
// with a Zero cell, nominally 100 microseconds). A transition arriving
// before the threshold timer fires is fast; one arriving after is slow.
const HalfBitThresholdMicros = 73

type halfLen int

const (
	halfShort halfLen = iota
	halfLong
)

type decodeState int

const (
	decAwaitingFirstHalf decodeState = iota
	decAwaitingSecondHalf
)

// Decoder is the line-level biphase decoder: it watches an InputPin for
// level transitions and classifies each pair of half-bit intervals into a
// Bit, timing them against HalfBitThresholdMicros with a CountDown. Tick
// must be called often enough to observe every transition; it does not
// block waiting for one.
type Decoder[P hal.InputPin, T hal.CountDown] struct {
	pin       P
	timer     T
	started   bool
	lastLevel bool
	state     decodeState
	firstHalf halfLen
}

// NewDecoder builds a line decoder bound to a concrete pin and timer.
func NewDecoder[P hal.InputPin, T hal.CountDown](pin P, timer T) *Decoder[P, T] {
	return &Decoder[P, T]{pin: pin, timer: timer, state: decAwaitingFirstHalf}
}

// Tick samples the input pin once. It returns hal.ErrWouldBlock until a full
// bit cell (two half-bit transitions of matching length) has been observed,
// the decoded Bit on success, or an error if the pin/timer collaborator
// fails. A half-bit pair that disagrees in length is not an error: it is
// treated as line noise, and the mismatched half simply becomes the new
// "first half" memory so the decoder keeps looking for a matching pair
// instead of resetting everything it has observed so far.
func (d *Decoder[P, T]) Tick() (Bit, error) {
	high, err := d.pin.IsHigh()
	if err != nil {
		return 0, fmt.Errorf("dcc: decoder sampling pin: %w", err)
	}

	if !d.started {
		d.lastLevel = high
		d.timer.Start(HalfBitThresholdMicros)
		d.started = true
		return 0, hal.ErrWouldBlock
	}

	if high == d.lastLevel {
		return 0, hal.ErrWouldBlock
	}

	waitErr := d.timer.Wait()
	var half halfLen
	switch waitErr {
	case hal.ErrWouldBlock:
		half = halfShort
	case nil:
		half = halfLong
	default:
		return 0, waitErr
	}

	d.lastLevel = high
	d.timer.Start(HalfBitThresholdMicros)

	switch d.state {
	case decAwaitingFirstHalf:
		d.firstHalf = half
		d.state = decAwaitingSecondHalf
		return 0, hal.ErrWouldBlock

	case decAwaitingSecondHalf:
		if half != d.firstHalf {
			// Mismatched half-bit pair: treat the new half as the start of a
			// fresh pair instead of discarding everything observed so far.
			d.firstHalf = half
			return 0, hal.ErrWouldBlock
		}
		d.state = decAwaitingFirstHalf
		if half == halfShort {
			return One, nil
		}
		return Zero, nil

	default:
		return 0, fmt.Errorf("dcc: decoder in unknown state %d", d.state)
	}
}
