package dcc

import "github.com/keskad/trackctl/pkgs/hal"

// fakePin and fakeTimer are minimal, allocation-free stand-ins for real GPIO
// hardware used only by this package's own tests: the codec core is
// otherwise generic over hal.ToggleableOutputPin/InputPin/CountDown and
// never depends on a concrete implementation.
type fakePin struct {
	high      bool
	toggles   int
	highCount int
	lowCount  int
}

func (p *fakePin) SetHigh() error { p.high = true; p.highCount++; return nil }
func (p *fakePin) SetLow() error  { p.high = false; p.lowCount++; return nil }
func (p *fakePin) Toggle() error  { p.high = !p.high; p.toggles++; return nil }
func (p *fakePin) IsHigh() (bool, error) { return p.high, nil }

type fakeTimer struct {
	remaining uint32
}

func (t *fakeTimer) Start(microseconds uint32) { t.remaining = microseconds }

func (t *fakeTimer) Wait() error {
	if t.remaining > 0 {
		return hal.ErrWouldBlock
	}
	return nil
}

// Advance simulates the passage of us microseconds of wall-clock time.
func (t *fakeTimer) Advance(us uint32) {
	if us >= t.remaining {
		t.remaining = 0
		return
	}
	t.remaining -= us
}

// driveEncoderBit ticks enc until it reports the bit complete, advancing
// the shared fake timer between ticks as if the full half-period elapsed
// immediately.
func driveEncoderBit(enc *Encoder[*fakePin, *fakeTimer], timer *fakeTimer, bit Bit) error {
	for {
		err := enc.Tick(bit)
		if err == nil {
			return nil
		}
		if err != hal.ErrWouldBlock {
			return err
		}
		timer.Advance(bit.HalfPeriodMicros())
	}
}
