package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFunctionGroup1RoundTrip(t *testing.T) {
	var fs FunctionSet
	fs.Set(0, true)
	fs.Set(2, true)
	fs.Set(4, true)

	b := fs.Group1Byte()
	assert.Equal(t, byte(0x80|0x10|0x02|0x08), b)

	var got FunctionSet
	got.ApplyGroup1Byte(b)
	assert.True(t, got.Get(0))
	assert.False(t, got.Get(1))
	assert.True(t, got.Get(2))
	assert.False(t, got.Get(3))
	assert.True(t, got.Get(4))
}

func TestFunctionGroup2And3RoundTrip(t *testing.T) {
	var fs FunctionSet
	fs.Set(5, true)
	fs.Set(8, true)
	fs.Set(9, true)
	fs.Set(12, true)

	var got FunctionSet
	got.ApplyGroup2Byte(fs.Group2Byte())
	got.ApplyGroup3Byte(fs.Group3Byte())

	assert.True(t, got.Get(5))
	assert.False(t, got.Get(6))
	assert.False(t, got.Get(7))
	assert.True(t, got.Get(8))
	assert.True(t, got.Get(9))
	assert.False(t, got.Get(10))
	assert.False(t, got.Get(11))
	assert.True(t, got.Get(12))
}

func TestFunctionExtendedBlocksRoundTrip(t *testing.T) {
	for _, lowFunc := range []int{13, 21, 29, 37, 45, 53, 61} {
		var fs FunctionSet
		fs.Set(lowFunc, true)
		fs.Set(lowFunc+7, true)

		bytes, err := fs.ExtendedBytes(lowFunc)
		assert.NoError(t, err)

		var got FunctionSet
		assert.NoError(t, got.ApplyExtendedBytes(bytes[0], bytes[1]))
		assert.True(t, got.Get(lowFunc))
		assert.True(t, got.Get(lowFunc+7))
		for i := 1; i < 7; i++ {
			assert.False(t, got.Get(lowFunc+i))
		}
	}
}

func TestFunctionExtendedBlocksRejectsBadSelector(t *testing.T) {
	var fs FunctionSet
	_, err := fs.ExtendedBytes(14)
	assert.Error(t, err)

	var got FunctionSet
	assert.Error(t, got.ApplyExtendedBytes(0xFF, 0x00))
}

func TestFunctionSetGetOutOfRange(t *testing.T) {
	var fs FunctionSet
	assert.False(t, fs.Get(-1))
	assert.False(t, fs.Get(MaxFunction+1))
}
