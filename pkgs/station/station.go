// Package station implements the command-station scheduler: it holds a
// bounded, insertion-ordered set of locomotives and drives a pkgs/dcc.Writer
// in round-robin fashion, continuously refreshing every locomotive's
// current drive state onto the track. Like pkgs/dcc and pkgs/susi, Run is a
// single non-blocking entry point: one call advances the writer (or the
// scheduler's own bookkeeping) by one step and returns hal.ErrWouldBlock
// between packets.
package station

import (
	"errors"
	"fmt"

	"github.com/keskad/trackctl/pkgs/core"
	"github.com/keskad/trackctl/pkgs/dcc"
	"github.com/keskad/trackctl/pkgs/hal"
	"github.com/sirupsen/logrus"
)

// ErrOverflow is returned by AddLoco when the station is already holding its
// configured capacity of locomotives.
var ErrOverflow = errors.New("station: capacity exceeded")

// Loco is one locomotive's current drive state as tracked by the scheduler:
// its address, direction, speed, and the 69-function set (F0-F68). Run only
// emits Drive packets, so the function set is stored but not sent.
type Loco struct {
	Addr      core.Address
	Direction core.Direction
	Speed     core.Speed
	Functions core.FunctionSet
}

// NewLoco builds a locomotive entry at rest: forward direction, stopped.
func NewLoco(addr core.Address) Loco {
	return Loco{Addr: addr, Direction: core.Forward, Speed: core.StopSpeed}
}

// Station is the command-station scheduler. It is generic over the pin and
// timer types its underlying dcc.Writer drives, exactly like dcc.Writer
// itself, and holds locomotives in a slice pre-allocated to its configured
// capacity and never reallocated: AddLoco rejects additions past capacity
// instead of growing the backing array.
type Station[P hal.ToggleableOutputPin, T hal.CountDown] struct {
	locos  []Loco
	writer *dcc.Writer[P, T]

	inFlight bool
	index    int

	// Logger is an optional debug-level hook fired whenever the scheduler
	// synthesizes a new Drive message for the locomotive at the cursor.
	// Nil-safe: leave it unset to run with no logging.
	Logger *logrus.Entry
}

// NewStation builds a scheduler bound to a concrete track pin and timer,
// with room for up to capacity locomotives and the given DCC preamble
// length (see dcc.MinPreambleBits).
func NewStation[P hal.ToggleableOutputPin, T hal.CountDown](pin P, timer T, capacity int, preambleBits int) *Station[P, T] {
	return &Station[P, T]{
		locos:  make([]Loco, 0, capacity),
		writer: dcc.NewWriter[P, T](pin, timer, preambleBits),
	}
}

func (s *Station[P, T]) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Debugf(format, args...)
	}
}

// AddLoco registers a new locomotive at the end of the rotation. It returns
// ErrOverflow instead of panicking once the station is at capacity
// (resolving Open Question #5).
func (s *Station[P, T]) AddLoco(addr core.Address) error {
	if len(s.locos) == cap(s.locos) {
		return ErrOverflow
	}
	s.locos = append(s.locos, NewLoco(addr))
	return nil
}

// LocoSetDrive updates the first locomotive matching addr. A configuration
// change becomes visible at the next packet boundary: it never interrupts a
// packet currently in flight, since Run only reads a locomotive's state
// when it starts a new one.
func (s *Station[P, T]) LocoSetDrive(addr core.Address, direction core.Direction, speed core.Speed) {
	for i := range s.locos {
		if s.locos[i].Addr == addr {
			s.locos[i].Direction = direction
			s.locos[i].Speed = speed
			return
		}
	}
}

// LocoSetFunction updates one function bit of the first locomotive matching
// addr.
func (s *Station[P, T]) LocoSetFunction(addr core.Address, fn int, on bool) {
	for i := range s.locos {
		if s.locos[i].Addr == addr {
			s.locos[i].Functions.Set(fn, on)
			return
		}
	}
}

// Len reports how many locomotives are currently registered.
func (s *Station[P, T]) Len() int {
	return len(s.locos)
}

// Run advances the scheduler by one step: either one tick of the
// in-flight packet's writer, or the synthesis of the next locomotive's
// Drive message. It always returns hal.ErrWouldBlock between packets — by
// design the scheduler never completes, it only keeps refreshing — and
// propagates any hard error from the writer unchanged.
func (s *Station[P, T]) Run() error {
	if s.inFlight {
		err := s.writer.Tick()
		if err == nil {
			s.inFlight = false
			return hal.ErrWouldBlock
		}
		return err
	}

	if len(s.locos) == 0 {
		return hal.ErrWouldBlock
	}
	if s.index >= len(s.locos) {
		s.index = 0
	}

	loco := s.locos[s.index]
	msg := dcc.NewDrive(loco.Addr, loco.Direction, loco.Speed)
	s.logf("station: emitting %+v", msg)

	payload, err := dcc.Serialize(msg)
	if err != nil {
		return fmt.Errorf("station: serializing drive message for address %d: %w", loco.Addr, err)
	}
	if err := s.writer.BeginPacket(payload); err != nil {
		return fmt.Errorf("station: starting packet for address %d: %w", loco.Addr, err)
	}
	s.inFlight = true
	s.index++
	return hal.ErrWouldBlock
}
