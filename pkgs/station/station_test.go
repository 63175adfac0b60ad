package station

import (
	"testing"

	"github.com/keskad/trackctl/pkgs/core"
	"github.com/keskad/trackctl/pkgs/dcc"
	"github.com/keskad/trackctl/pkgs/hal"
	"github.com/stretchr/testify/assert"
)

type fakePin struct {
	high bool
}

func (p *fakePin) SetLow() error {
	p.high = false
	return nil
}

func (p *fakePin) SetHigh() error {
	p.high = true
	return nil
}

func (p *fakePin) Toggle() error {
	p.high = !p.high
	return nil
}

type fakeTimer struct {
	remaining uint32
}

func (t *fakeTimer) Start(microseconds uint32) {
	t.remaining = microseconds
}

func (t *fakeTimer) Wait() error {
	if t.remaining > 0 {
		return hal.ErrWouldBlock
	}
	return nil
}

func (t *fakeTimer) Advance(microseconds uint32) {
	if microseconds >= t.remaining {
		t.remaining = 0
	} else {
		t.remaining -= microseconds
	}
}

// driveOnePacket ticks the station's Run loop, advancing the fake timer,
// until the in-flight packet completes — i.e. until an immediately
// following Run call would start a new one.
func driveOnePacket(t *testing.T, s *Station[*fakePin, *fakeTimer], timer *fakeTimer) {
	t.Helper()
	// Kick off the new packet.
	err := s.Run()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)
	assert.True(t, s.inFlight)

	for i := 0; i < 100000; i++ {
		err := s.Run()
		assert.ErrorIs(t, err, hal.ErrWouldBlock)
		if !s.inFlight {
			return
		}
		timer.Advance(100)
	}
	t.Fatal("packet never completed")
}

func TestAddLocoRejectsOverflow(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	s := NewStation[*fakePin, *fakeTimer](pin, timer, 2, dcc.MinPreambleBits)

	assert.NoError(t, s.AddLoco(core.Address(3)))
	assert.NoError(t, s.AddLoco(core.Address(4)))
	assert.ErrorIs(t, s.AddLoco(core.Address(5)), ErrOverflow)
	assert.Equal(t, 2, s.Len())
}

func TestSchedulerRoundRobinFairness(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	s := NewStation[*fakePin, *fakeTimer](pin, timer, 3, dcc.MinPreambleBits)

	a, b, c := core.Address(10), core.Address(20), core.Address(30)
	assert.NoError(t, s.AddLoco(a))
	assert.NoError(t, s.AddLoco(b))
	assert.NoError(t, s.AddLoco(c))

	// Three consecutive completions address a, then b, then c, then a again.
	want := []core.Address{a, b, c, a}
	for _, addr := range want {
		assert.Equal(t, addr, s.locos[s.index%len(s.locos)].Addr)
		driveOnePacket(t, s, timer)
	}
}

func TestLocoSetDriveUpdatesMatchingEntry(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	s := NewStation[*fakePin, *fakeTimer](pin, timer, 2, dcc.MinPreambleBits)

	addr := core.Address(42)
	assert.NoError(t, s.AddLoco(addr))

	speed, err := core.NewSteps128(56)
	assert.NoError(t, err)
	s.LocoSetDrive(addr, core.Backward, speed)

	assert.Equal(t, core.Backward, s.locos[0].Direction)
	assert.Equal(t, speed, s.locos[0].Speed)
}

func TestLocoSetFunctionUpdatesMatchingEntry(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	s := NewStation[*fakePin, *fakeTimer](pin, timer, 2, dcc.MinPreambleBits)

	addr := core.Address(42)
	assert.NoError(t, s.AddLoco(addr))
	s.LocoSetFunction(addr, 3, true)

	assert.True(t, s.locos[0].Functions.Get(3))
	assert.False(t, s.locos[0].Functions.Get(4))
}

func TestRunWithNoLocomotivesAlwaysBlocks(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	s := NewStation[*fakePin, *fakeTimer](pin, timer, 2, dcc.MinPreambleBits)

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, s.Run(), hal.ErrWouldBlock)
	}
}
