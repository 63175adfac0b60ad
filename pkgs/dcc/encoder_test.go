package dcc

import (
	"testing"

	"github.com/keskad/trackctl/pkgs/hal"
	"github.com/stretchr/testify/assert"
)

func TestEncoderOneBitTogglesTwice(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	enc := NewEncoder[*fakePin, *fakeTimer](pin, timer)

	assert.NoError(t, driveEncoderBit(enc, timer, One))
	assert.Equal(t, 2, pin.toggles)
}

func TestEncoderZeroBitTogglesTwice(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	enc := NewEncoder[*fakePin, *fakeTimer](pin, timer)

	assert.NoError(t, driveEncoderBit(enc, timer, Zero))
	assert.Equal(t, 2, pin.toggles)
}

func TestEncoderWouldBlockBeforeTimerElapses(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	enc := NewEncoder[*fakePin, *fakeTimer](pin, timer)

	assert.ErrorIs(t, enc.Tick(One), hal.ErrWouldBlock)
	assert.ErrorIs(t, enc.Tick(One), hal.ErrWouldBlock, "still waiting on the first half period")
}

func TestEncoderRejectsBitChangeMidCell(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	enc := NewEncoder[*fakePin, *fakeTimer](pin, timer)

	assert.ErrorIs(t, enc.Tick(One), hal.ErrWouldBlock)
	err := enc.Tick(Zero)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, hal.ErrWouldBlock)
}
