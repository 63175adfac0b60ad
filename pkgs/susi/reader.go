package susi

import (
	"fmt"

	"github.com/keskad/trackctl/pkgs/hal"
)

// ResyncTimeoutMicros is how long the slave waits after the last bit of a
// byte before giving up on the in-progress message and resyncing to a
// fresh one (the master is expected to keep the clock line busy more often
// than this while a message is in flight).
const ResyncTimeoutMicros = 8000

type readerState int

const (
	rdIdle readerState = iota
	rdWaitAcknowledge
	rdWaitAfterByte
)

// Reader is the SUSI bus slave: it samples DATA on every falling edge of
// CLK, assembles bits LSB-first into up to 3 bytes, and decodes a Msg once
// the command byte's declared length (LenFromByte) is satisfied. A
// ResyncTimeoutMicros watchdog resets a stalled in-progress message back to
// Idle.
type Reader[D hal.InputPin, C hal.InputPin, A hal.OutputPin, T hal.CountDown] struct {
	pinData D
	pinClk  C
	pinAck  A
	timer   T

	currentByte int
	buf         [3]byte
	lastClk     bool
	bitsRead    uint8
	state       readerState
}

// NewReader builds a bus slave bound to concrete data/clock/ack pins and a
// timer.
func NewReader[D hal.InputPin, C hal.InputPin, A hal.OutputPin, T hal.CountDown](pinData D, pinClk C, pinAck A, timer T) *Reader[D, C, A, T] {
	lastClk, _ := pinClk.IsHigh()
	return &Reader[D, C, A, T]{pinData: pinData, pinClk: pinClk, pinAck: pinAck, timer: timer, lastClk: lastClk, state: rdIdle}
}

func (r *Reader[D, C, A, T]) reset() {
	r.buf = [3]byte{}
	r.bitsRead = 0
	r.currentByte = 0
	r.state = rdIdle
}

func (r *Reader[D, C, A, T]) startTimeout() {
	r.state = rdWaitAfterByte
	r.timer.Start(ResyncTimeoutMicros)
}

// Read samples the bus once. It returns hal.ErrWouldBlock until a full
// message has been assembled, the decoded Msg on success, or an error if a
// pin collaborator fails.
func (r *Reader[D, C, A, T]) Read() (Msg, error) {
	if r.state == rdWaitAcknowledge {
		if _, err := r.Ack(); err != nil {
			return Msg{}, err
		}
	}

	if r.state != rdIdle {
		if err := r.timer.Wait(); err == nil {
			r.reset()
		}
	}

	clk, err := r.pinClk.IsHigh()
	if err != nil {
		return Msg{}, fmt.Errorf("susi: reader sampling clock: %w", err)
	}

	if r.lastClk && !clk {
		if r.state == rdIdle {
			r.startTimeout()
		}
		high, err := r.pinData.IsHigh()
		if err != nil {
			return Msg{}, fmt.Errorf("susi: reader sampling data: %w", err)
		}
		if high {
			r.buf[r.currentByte] |= 1 << r.bitsRead
		}
		r.bitsRead++
	}
	r.lastClk = clk

	if r.bitsRead == 8 {
		r.startTimeout()
		r.bitsRead = 0

		length := LenFromByte(r.buf[0])
		if r.currentByte >= length-1 {
			r.currentByte = 0
			msg := ParseBytes(r.buf)
			r.buf = [3]byte{}
			r.state = rdWaitAfterByte
			return msg, nil
		}
		r.currentByte = (r.currentByte + 1) % 3
	}

	return Msg{}, hal.ErrWouldBlock
}

// Ack drives the slave's acknowledge pulse: a 2 millisecond active pulse on
// pinAck, used after the application layer accepts a CV programming
// message. Call it repeatedly until it returns nil.
func (r *Reader[D, C, A, T]) Ack() (bool, error) {
	if r.state == rdWaitAcknowledge {
		if err := r.timer.Wait(); err != nil {
			return false, err
		}
		if err := r.pinAck.SetLow(); err != nil {
			return false, fmt.Errorf("susi: reader releasing ack pin: %w", err)
		}
		r.reset()
		return true, nil
	}

	r.timer.Start(AckWindowMicros)
	if err := r.pinAck.SetHigh(); err != nil {
		return false, fmt.Errorf("susi: reader driving ack pin: %w", err)
	}
	r.state = rdWaitAcknowledge
	return false, hal.ErrWouldBlock
}
