// Package hal declares the collaborator interfaces the DCC and SUSI line
// codecs drive: GPIO pins and a microsecond countdown timer. The codec core
// never talks to real hardware directly — it is generic over these
// capabilities so the same state machine runs against a bit-banged GPIO
// line in production and against a fake in tests, without pulling a mock
// framework into the hot path.
package hal

import "errors"

// ErrWouldBlock is returned by a codec tick when no further progress can be
// made this call: the caller should return control to its scheduler and try
// again on the next tick. It is the nb-style sentinel spec.md §9 calls for.
var ErrWouldBlock = errors.New("hal: would block")

// ErrIO is returned when a pin or timer collaborator itself fails.
var ErrIO = errors.New("hal: io error")

// ErrTimer is returned when a CountDown collaborator fails to arm or read.
var ErrTimer = errors.New("hal: timer error")

// OutputPin drives a single digital output high or low.
type OutputPin interface {
	SetHigh() error
	SetLow() error
}

// ToggleableOutputPin is an OutputPin that can also flip its own state
// without the caller tracking which level it last set — the DCC line
// encoder's biphase toggling needs exactly this and nothing more.
type ToggleableOutputPin interface {
	OutputPin
	Toggle() error
}

// InputPin samples a single digital input.
type InputPin interface {
	IsHigh() (bool, error)
}

// CountDown is a one-shot, re-armable microsecond timer. Start begins a new
// countdown of the given duration; Wait reports ErrWouldBlock until the
// duration has elapsed, then succeeds exactly once per Start.
type CountDown interface {
	Start(microseconds uint32)
	Wait() error
}
