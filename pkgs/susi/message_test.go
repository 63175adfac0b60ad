package susi

import (
	"testing"

	"github.com/keskad/trackctl/pkgs/core"
	"github.com/stretchr/testify/assert"
)

func TestParseBytesMotorPower(t *testing.T) {
	msg := ParseBytes([3]byte{0x23, 0b00001111, 0x00})
	assert.Equal(t, MotorPower, msg.Kind)
	assert.Equal(t, int8(15), msg.SignedByte)
}

func TestParseBytesSpeedDiff(t *testing.T) {
	msg := ParseBytes([3]byte{0x22, 0b11111000, 0x00})
	assert.Equal(t, SpeedDiff, msg.Kind)
	assert.Equal(t, int8(-8), msg.SignedByte)
}

func TestParseBytesTriggerPulse(t *testing.T) {
	msg := ParseBytes([3]byte{0x21, 0x01, 0x00})
	assert.Equal(t, TriggerPulse, msg.Kind)
}

func TestNeedsAck(t *testing.T) {
	assert.False(t, (Msg{Kind: Unknown}).NeedsAck())
	assert.False(t, (Msg{Kind: LocomotiveLoad, Load7: 127}).NeedsAck())
	assert.True(t, (Msg{Kind: CVByteCheck, CVAddr: 127, CVValue: 0xAA}).NeedsAck())
	assert.True(t, (Msg{Kind: CVBitManipulation, CVAddr: 222, CVCheck: false, CVBitValue: true, CVPosition: 5}).NeedsAck())
	assert.True(t, (Msg{Kind: CVByteSet, CVAddr: 130, CVValue: 0xBB}).NeedsAck())
}

// TestParseAndBackSampled round-trips every command byte against a sample of
// data/check bytes instead of an exhaustive 16M-triple loop, so the test
// completes quickly.
func TestParseAndBackSampled(t *testing.T) {
	for cmd := 0; cmd < 256; cmd++ {
		for _, b := range []byte{0x00, 0x01, 0x0F, 0x7F, 0x80, 0xAA, 0xF0, 0xFF} {
			for _, c := range []byte{0x00, 0x55, 0xFF} {
				buf := [3]byte{byte(cmd), b, c}
				msg := ParseBytes(buf)
				if msg.Len() < 3 {
					buf[2] = 0x00
				}
				if msg.Kind == LocomotiveLoad {
					buf[1] &= mask7
				}
				if msg.Kind == Noop {
					buf[1] = 0x00
				}
				if msg.Kind == TriggerPulse {
					buf[1] = 0x01
				}
				if msg.Kind == CVBitManipulation {
					buf[2] |= 0xE0
				}
				got, err := msg.ToBytes()
				assert.NoError(t, err)
				assert.Equal(t, buf, got, "cmd=%#02x b=%#02x c=%#02x kind=%v", cmd, b, c, msg.Kind)
			}
		}
	}
}

// TestFunctionGroupDataDecoding decodes the same raw byte 0b1010_1010 under
// three different group contexts (F0-F4, F5-F8, F9-F12), each reading the
// bit positions its own group assigns.
func TestFunctionGroupDataDecoding(t *testing.T) {
	raw := core.FunctionGroupByte(0b10101010)

	var fs1 core.FunctionSet
	assert.NoError(t, raw.ApplyToSet(core.FunctionGroup1, &fs1))
	assert.False(t, fs1.Get(0)) // F0 sits at bit 4, which is 0 in 0xAA
	assert.True(t, fs1.Get(4))  // F4 sits at bit 3, which is 1

	msg2 := ParseBytes([3]byte{95 + 2, byte(raw), 0x00})
	assert.Equal(t, FunctionGroup, msg2.Kind)
	assert.Equal(t, core.FunctionGroup2, msg2.GroupNum)
	var fs2 core.FunctionSet
	assert.NoError(t, msg2.GroupByte.ApplyToSet(msg2.GroupNum, &fs2))
	assert.False(t, fs2.Get(5))
	assert.True(t, fs2.Get(6))
	assert.False(t, fs2.Get(7))
	assert.True(t, fs2.Get(8))

	msg3 := ParseBytes([3]byte{95 + 3, byte(raw), 0x00})
	assert.Equal(t, core.FunctionGroup3, msg3.GroupNum)
	var fs3 core.FunctionSet
	assert.NoError(t, msg3.GroupByte.ApplyToSet(msg3.GroupNum, &fs3))
	assert.False(t, fs3.Get(9))
	assert.True(t, fs3.Get(10))
	assert.False(t, fs3.Get(11))
	assert.True(t, fs3.Get(12))
}

func TestLenFromByte(t *testing.T) {
	assert.Equal(t, 3, LenFromByte(0x77))
	assert.Equal(t, 3, LenFromByte(0x7B))
	assert.Equal(t, 3, LenFromByte(0x7F))
	assert.Equal(t, 2, LenFromByte(0x00))
	assert.Equal(t, 2, LenFromByte(0x22))
}
