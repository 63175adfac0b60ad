package dcc

import (
	"github.com/keskad/trackctl/pkgs/hal"
	"github.com/sirupsen/logrus"
)

// MaxPacketBytes bounds the reader's packet buffer: long address (2) plus
// up to two instruction bytes plus the checksum trailer comfortably fits in
// 6 bytes, and the reader never grows the buffer at runtime.
const MaxPacketBytes = 6

type readerState int

const (
	rPreamble readerState = iota
	rStartBit
	rDataBit
	rEndOrContinueBit
)

// Reader is the packet-layer DCC receiver: it assembles bits produced by a
// Decoder into complete packets, verifies the XOR checksum trailer
// (resolving spec Open Question #1), and drops bad packets back to
// scanning for a fresh preamble rather than surfacing them as an error —
// the reader logs and keeps going, per the never-aborts reading policy.
type Reader[P hal.InputPin, T hal.CountDown] struct {
	dec           *Decoder[P, T]
	state         readerState
	preambleCount int
	curByte       byte
	bitIdx        int
	buf           [MaxPacketBytes]byte
	count         int

	// Logger is an optional, nil-safe hook for checksum/parse/overflow
	// diagnostics. The codec core never requires it.
	Logger *logrus.Entry
}

// NewReader builds a packet reader bound to a concrete pin and timer.
func NewReader[P hal.InputPin, T hal.CountDown](pin P, timer T) *Reader[P, T] {
	return &Reader[P, T]{dec: NewDecoder[P, T](pin, timer), state: rPreamble}
}

func (r *Reader[P, T]) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger.Debugf(format, args...)
	}
}

func (r *Reader[P, T]) reset() {
	r.state = rPreamble
	r.preambleCount = 0
	r.count = 0
}

// Tick drives the reader by one line-level Decoder tick. It returns
// hal.ErrWouldBlock while no complete, valid packet is ready, the decoded
// Message once one is, or a hard error if the underlying decoder/pin/timer
// collaborator fails.
func (r *Reader[P, T]) Tick() (Message, error) {
	bit, err := r.dec.Tick()
	if err == hal.ErrWouldBlock {
		return Message{}, hal.ErrWouldBlock
	}
	if err != nil {
		r.logf("dcc: line error, resyncing: %v", err)
		r.reset()
		return Message{}, hal.ErrWouldBlock
	}

	switch r.state {
	case rPreamble:
		if bit == One {
			r.preambleCount++
			if r.preambleCount >= MinPreambleBits {
				r.state = rStartBit
			}
		} else {
			r.preambleCount = 0
		}
		return Message{}, hal.ErrWouldBlock

	case rStartBit:
		if bit == One {
			// still inside an (over-long) preamble
			return Message{}, hal.ErrWouldBlock
		}
		r.curByte = 0
		r.bitIdx = 7
		r.state = rDataBit
		return Message{}, hal.ErrWouldBlock

	case rDataBit:
		if bit == One {
			r.curByte |= 1 << uint(r.bitIdx)
		}
		r.bitIdx--
		if r.bitIdx < 0 {
			if r.count >= MaxPacketBytes {
				r.logf("dcc: packet overflow past %d bytes, resyncing", MaxPacketBytes)
				r.reset()
				return Message{}, hal.ErrWouldBlock
			}
			r.buf[r.count] = r.curByte
			r.count++
			r.state = rEndOrContinueBit
		}
		return Message{}, hal.ErrWouldBlock

	case rEndOrContinueBit:
		if bit == Zero {
			r.curByte = 0
			r.bitIdx = 7
			r.state = rDataBit
			return Message{}, hal.ErrWouldBlock
		}

		payload := append([]byte{}, r.buf[:r.count]...)
		r.reset()

		if !ChecksumOK(payload) {
			r.logf("dcc: checksum mismatch on %d-byte packet, dropping", len(payload))
			return Message{}, hal.ErrWouldBlock
		}
		msg, parseErr := Parse(payload)
		if parseErr != nil {
			r.logf("dcc: dropping unparseable packet: %v", parseErr)
			return Message{}, hal.ErrWouldBlock
		}
		return msg, nil

	default:
		r.reset()
		return Message{}, hal.ErrWouldBlock
	}
}
