package dcc

import (
	"testing"

	"github.com/keskad/trackctl/pkgs/core"
	"github.com/keskad/trackctl/pkgs/hal"
	"github.com/stretchr/testify/assert"
)

func driveWriter(t *testing.T, w *Writer[*fakePin, *fakeTimer], timer *fakeTimer) {
	t.Helper()
	for i := 0; i < 100000; i++ {
		err := w.Tick()
		if err == nil {
			return
		}
		if err != hal.ErrWouldBlock {
			t.Fatalf("writer.Tick: %v", err)
			return
		}
		timer.Advance(100)
	}
	t.Fatal("writer never completed")
}

func TestWriterSendsFullBaselinePacket(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	w := NewWriter[*fakePin, *fakeTimer](pin, timer, MinPreambleBits)

	speed, err := core.NewSteps28(40)
	assert.NoError(t, err)
	msg := NewDrive(core.Address(3), core.Forward, speed)
	payload, err := Serialize(msg)
	assert.NoError(t, err)

	assert.NoError(t, w.BeginPacket(payload))
	driveWriter(t, w, timer)

	totalBits := MinPreambleBits + len(payload)*9 + 1
	assert.Equal(t, totalBits*2, pin.toggles)
	assert.False(t, w.Busy())
}

func TestWriterRejectsConcurrentPacket(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	w := NewWriter[*fakePin, *fakeTimer](pin, timer, MinPreambleBits)

	assert.NoError(t, w.BeginPacket([]byte{0x03, 0x40, 0x43}))
	assert.Error(t, w.BeginPacket([]byte{0x03, 0x40, 0x43}))
}

func TestWriterRaisesShortPreambleToMinimum(t *testing.T) {
	pin := &fakePin{}
	timer := &fakeTimer{}
	w := NewWriter[*fakePin, *fakeTimer](pin, timer, 2)
	assert.Equal(t, MinPreambleBits, w.preambleBits)
}
