package dcc

import (
	"testing"

	"github.com/keskad/trackctl/pkgs/core"
	"github.com/keskad/trackctl/pkgs/hal"
	"github.com/stretchr/testify/assert"
)

// bitsForPacket expands a serialized payload into the exact line bit
// sequence a Writer would emit for it: preamble, then a Zero start bit and
// eight MSB-first data bits per byte, ending in a single stop bit.
func bitsForPacket(payload []byte) []Bit {
	bits := make([]Bit, 0, MinPreambleBits+len(payload)*9+1)
	for i := 0; i < MinPreambleBits; i++ {
		bits = append(bits, One)
	}
	for _, b := range payload {
		bits = append(bits, Zero)
		for i := 7; i >= 0; i-- {
			bits = append(bits, bitFromByte(b, i))
		}
	}
	bits = append(bits, One)
	return bits
}

// feedBitsToReader drives a Reader's line exactly as a transmitter would:
// for each bit it toggles the shared fake pin through its two half-periods,
// ticking the reader once per toggle to register the transition.
func feedBitsToReader(t *testing.T, r *Reader[*fakePin, *fakeTimer], pin *fakePin, timer *fakeTimer, bits []Bit) (Message, bool) {
	t.Helper()

	// Prime the decoder's edge baseline before any transition happens.
	_, err := r.Tick()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)

	for _, bit := range bits {
		half := bit.HalfPeriodMicros()

		timer.Advance(half)
		assert.NoError(t, pin.Toggle())
		if msg, err := r.Tick(); err == nil {
			return msg, true
		} else {
			assert.ErrorIs(t, err, hal.ErrWouldBlock)
		}

		timer.Advance(half)
		assert.NoError(t, pin.Toggle())
		if msg, err := r.Tick(); err == nil {
			return msg, true
		} else {
			assert.ErrorIs(t, err, hal.ErrWouldBlock)
		}
	}
	return Message{}, false
}

func TestReaderDecodesBaselineDrivePacket(t *testing.T) {
	speed, err := core.NewSteps28(28)
	assert.NoError(t, err)
	want := NewDrive(core.Address(5), core.Backward, speed)
	payload, err := Serialize(want)
	assert.NoError(t, err)

	pin := &fakePin{}
	timer := &fakeTimer{}
	r := NewReader[*fakePin, *fakeTimer](pin, timer)

	got, ok := feedBitsToReader(t, r, pin, timer, bitsForPacket(payload))
	assert.True(t, ok, "reader never produced a message")
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, want.Direction, got.Direction)
	assert.Equal(t, want.Speed, got.Speed)
}

func TestReaderDropsBadChecksumAndResyncs(t *testing.T) {
	speed, err := core.NewSteps28(28)
	assert.NoError(t, err)
	msg := NewDrive(core.Address(5), core.Forward, speed)
	payload, err := Serialize(msg)
	assert.NoError(t, err)
	payload[len(payload)-1] ^= 0xFF // corrupt the checksum trailer

	pin := &fakePin{}
	timer := &fakeTimer{}
	r := NewReader[*fakePin, *fakeTimer](pin, timer)

	_, ok := feedBitsToReader(t, r, pin, timer, bitsForPacket(payload))
	assert.False(t, ok, "a corrupted packet must never surface as a decoded message")
}

func TestReaderDecodesAdvancedDrivePacket(t *testing.T) {
	speed, err := core.NewSteps128(100)
	assert.NoError(t, err)
	want := NewDrive(core.Address(200), core.Forward, speed)
	payload, err := Serialize(want)
	assert.NoError(t, err)

	pin := &fakePin{}
	timer := &fakeTimer{}
	r := NewReader[*fakePin, *fakeTimer](pin, timer)

	got, ok := feedBitsToReader(t, r, pin, timer, bitsForPacket(payload))
	assert.True(t, ok)
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, want.Speed, got.Speed)
}
