package commandstation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func xorOf(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}

func TestBuildSetLocoFunctionOnOff(t *testing.T) {
	z := &Z21Roco{}

	on := z.buildSetLocoFunction(LocoAddr(3), 4, true)
	assert.Equal(t, []byte{0xF8, 0x00, 0x03, 0x40 | 0x04}, on[4:8])
	assert.Equal(t, xorOf(on[4:8]), on[8])

	off := z.buildSetLocoFunction(LocoAddr(3), 4, false)
	assert.Equal(t, []byte{0xF8, 0x00, 0x03, 0x04}, off[4:8])
}

func TestBuildSetLocoFunctionLongAddress(t *testing.T) {
	z := &Z21Roco{}
	req := z.buildSetLocoFunction(LocoAddr(1234), 0, true)
	// 1234 = 0x04D2, long address marker 0xC0 on the MSB.
	assert.Equal(t, byte(0xC0|0x04), req[5])
	assert.Equal(t, byte(0xD2), req[6])
}

func TestBuildGetLocoInfo(t *testing.T) {
	z := &Z21Roco{}
	req := z.buildGetLocoInfo(LocoAddr(3))
	assert.Equal(t, []byte{0xE3, 0xF0, 0x00, 0x03}, req[4:8])
	assert.Equal(t, xorOf(req[4:8]), req[8])
}

func TestBuildSetLocoDriveDirectionAndSpeed(t *testing.T) {
	z := &Z21Roco{}

	fwd := z.buildSetLocoDrive(LocoAddr(3), 60, true, 128)
	db3 := fwd[len(fwd)-2]
	assert.Equal(t, byte(0x80|60), db3)

	back := z.buildSetLocoDrive(LocoAddr(3), 60, false, 128)
	db3 = back[len(back)-2]
	assert.Equal(t, byte(60), db3)
}

func TestSpeedStepsMode(t *testing.T) {
	assert.Equal(t, byte(0x10), speedStepsMode(14))
	assert.Equal(t, byte(0x12), speedStepsMode(28))
	assert.Equal(t, byte(0x13), speedStepsMode(128))
}
