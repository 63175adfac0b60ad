package dcc

import (
	"testing"

	"github.com/keskad/trackctl/pkgs/hal"
	"github.com/stretchr/testify/assert"
)

func decodeOneBit(t *testing.T, dec *Decoder[*fakePin, *fakeTimer], pin *fakePin, timer *fakeTimer, bit Bit) Bit {
	t.Helper()
	half := bit.HalfPeriodMicros()

	timer.Advance(half)
	assert.NoError(t, pin.Toggle())
	_, err := dec.Tick()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)

	timer.Advance(half)
	assert.NoError(t, pin.Toggle())
	got, err := dec.Tick()
	assert.NoError(t, err)
	return got
}

func TestDecoderClassifiesOneBit(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	dec := NewDecoder[*fakePin, *fakeTimer](pin, timer)

	_, err := dec.Tick()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)

	assert.Equal(t, One, decodeOneBit(t, dec, pin, timer, One))
}

func TestDecoderClassifiesZeroBit(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	dec := NewDecoder[*fakePin, *fakeTimer](pin, timer)

	_, err := dec.Tick()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)

	assert.Equal(t, Zero, decodeOneBit(t, dec, pin, timer, Zero))
}

// TestDecoderRecoversFromMismatchedHalves checks that a half-bit pair that
// disagrees in length (line noise) never surfaces as a hard error: the
// mismatched half simply becomes the new "first half" memory, and the
// decoder keeps looking for a matching pair instead of discarding its
// in-progress state.
func TestDecoderRecoversFromMismatchedHalves(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	dec := NewDecoder[*fakePin, *fakeTimer](pin, timer)

	_, err := dec.Tick()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)

	// first half: One (short)
	timer.Advance(One.HalfPeriodMicros())
	assert.NoError(t, pin.Toggle())
	_, err = dec.Tick()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)

	// mismatching second half: Zero (long) -- treated as noise, not an error
	timer.Advance(Zero.HalfPeriodMicros())
	assert.NoError(t, pin.Toggle())
	_, err = dec.Tick()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)

	// the mismatched half is now the new "first half": pairing it with a
	// matching Zero half completes a Zero bit instead of erroring again.
	timer.Advance(Zero.HalfPeriodMicros())
	assert.NoError(t, pin.Toggle())
	got, err := dec.Tick()
	assert.NoError(t, err)
	assert.Equal(t, Zero, got)
}
