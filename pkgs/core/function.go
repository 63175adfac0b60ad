package core

import "fmt"

// MaxFunction is the highest addressable auxiliary function (F0..F68).
const MaxFunction = 68

// FunctionSet holds the on/off state of every function F0..F68 for one
// locomotive. It is a fixed-size array so it never allocates: the command
// station scheduler keeps one per slot.
type FunctionSet [MaxFunction + 1]bool

// Get reports whether function n is currently active. n outside [0,68]
// always reads false.
func (fs FunctionSet) Get(n int) bool {
	if n < 0 || n > MaxFunction {
		return false
	}
	return fs[n]
}

// Set turns function n on or off. n outside [0,68] is a no-op: the caller
// should have validated the range already (see SendFn in pkgs/commandstation).
func (fs *FunctionSet) Set(n int, on bool) {
	if n < 0 || n > MaxFunction {
		return
	}
	fs[n] = on
}

func bit(on bool, pos uint) byte {
	if on {
		return 1 << pos
	}
	return 0
}

// Group1Byte packs F0-F4 into the DCC "100D DDDD" function group one byte,
// where D (bit 4) carries F0 and bits 0-3 carry F1-F4 in order.
func (fs FunctionSet) Group1Byte() byte {
	return 0x80 | bit(fs.Get(0), 4) | bit(fs.Get(1), 0) | bit(fs.Get(2), 1) | bit(fs.Get(3), 2) | bit(fs.Get(4), 3)
}

// Group2Byte packs F5-F8 into the "1011 DDDD" function group two byte.
func (fs FunctionSet) Group2Byte() byte {
	return 0xB0 | bit(fs.Get(5), 0) | bit(fs.Get(6), 1) | bit(fs.Get(7), 2) | bit(fs.Get(8), 3)
}

// Group3Byte packs F9-F12 into the "1010 DDDD" function group three byte.
func (fs FunctionSet) Group3Byte() byte {
	return 0xA0 | bit(fs.Get(9), 0) | bit(fs.Get(10), 1) | bit(fs.Get(11), 2) | bit(fs.Get(12), 3)
}

// extendedSelector is the first byte of a binary-state-free extended
// function group command (F13 and above), one per 8-function block.
var extendedSelector = map[int]byte{
	13: 0xDE, // F13-F20
	21: 0xDF, // F21-F28
	29: 0xD8, // F29-F36
	37: 0xD9, // F37-F44
	45: 0xDA, // F45-F52
	53: 0xDB, // F53-F60
	61: 0xDC, // F61-F68
}

// ExtendedBytes packs an 8-function block starting at lowFunc (one of
// 13, 21, 29, 37, 45, 53, 61) into its two-byte DCC instruction: a fixed
// selector byte followed by a byte with one bit per function, LSB first.
func (fs FunctionSet) ExtendedBytes(lowFunc int) ([2]byte, error) {
	sel, ok := extendedSelector[lowFunc]
	if !ok {
		return [2]byte{}, fmt.Errorf("core: %d is not a valid extended function block start", lowFunc)
	}
	var data byte
	for i := 0; i < 8; i++ {
		data |= bit(fs.Get(lowFunc+i), uint(i))
	}
	return [2]byte{sel, data}, nil
}

// ApplyGroup1Byte updates F0-F4 from a received "100D DDDD" byte.
func (fs *FunctionSet) ApplyGroup1Byte(b byte) {
	fs.Set(0, b&0x10 != 0)
	fs.Set(1, b&0x01 != 0)
	fs.Set(2, b&0x02 != 0)
	fs.Set(3, b&0x04 != 0)
	fs.Set(4, b&0x08 != 0)
}

// ApplyGroup2Byte updates F5-F8 from a received "1011 DDDD" byte.
func (fs *FunctionSet) ApplyGroup2Byte(b byte) {
	fs.Set(5, b&0x01 != 0)
	fs.Set(6, b&0x02 != 0)
	fs.Set(7, b&0x04 != 0)
	fs.Set(8, b&0x08 != 0)
}

// ApplyGroup3Byte updates F9-F12 from a received "1010 DDDD" byte.
func (fs *FunctionSet) ApplyGroup3Byte(b byte) {
	fs.Set(9, b&0x01 != 0)
	fs.Set(10, b&0x02 != 0)
	fs.Set(11, b&0x04 != 0)
	fs.Set(12, b&0x08 != 0)
}

// ApplyExtendedBytes updates an 8-function block from a received selector
// and data byte pair.
func (fs *FunctionSet) ApplyExtendedBytes(selector, data byte) error {
	for lowFunc, sel := range extendedSelector {
		if sel != selector {
			continue
		}
		for i := 0; i < 8; i++ {
			fs.Set(lowFunc+i, data&(1<<uint(i)) != 0)
		}
		return nil
	}
	return fmt.Errorf("core: %#02x is not a recognized extended function selector", selector)
}

// FunctionGroupNumber identifies one of the nine single-byte function
// groups the SUSI bus addresses directly (command bytes 96-104 in
// pkgs/susi), reusing the same bit layouts as the equivalent DCC function
// group instructions: group 1 carries F0-F4 (F0 at bit 4), groups 2 and 3
// are the 4-bit F5-F8/F9-F12 groups, and groups 4-9 are the 8-bit extended
// blocks up to F53-F60. F61-F68 (the last DCC extended block) has no SUSI
// group in this layout.
type FunctionGroupNumber uint8

const (
	FunctionGroup1 FunctionGroupNumber = 1 // F0-F4
	FunctionGroup2 FunctionGroupNumber = 2 // F5-F8
	FunctionGroup3 FunctionGroupNumber = 3 // F9-F12
	FunctionGroup4 FunctionGroupNumber = 4 // F13-F20
	FunctionGroup5 FunctionGroupNumber = 5 // F21-F28
	FunctionGroup6 FunctionGroupNumber = 6 // F29-F36
	FunctionGroup7 FunctionGroupNumber = 7 // F37-F44
	FunctionGroup8 FunctionGroupNumber = 8 // F45-F52
	FunctionGroup9 FunctionGroupNumber = 9 // F53-F60
)

type functionGroupShape struct {
	lowFunc int
	bits    int
}

var functionGroupLayout = map[FunctionGroupNumber]functionGroupShape{
	FunctionGroup1: {lowFunc: 0, bits: 5},
	FunctionGroup2: {lowFunc: 5, bits: 4},
	FunctionGroup3: {lowFunc: 9, bits: 4},
	FunctionGroup4: {lowFunc: 13, bits: 8},
	FunctionGroup5: {lowFunc: 21, bits: 8},
	FunctionGroup6: {lowFunc: 29, bits: 8},
	FunctionGroup7: {lowFunc: 37, bits: 8},
	FunctionGroup8: {lowFunc: 45, bits: 8},
	FunctionGroup9: {lowFunc: 53, bits: 8},
}

func (n FunctionGroupNumber) valid() bool {
	_, ok := functionGroupLayout[n]
	return ok
}

// FunctionGroupByte is the raw single-byte payload of one SUSI function
// group message.
type FunctionGroupByte byte

// FunctionGroupByteFromSet packs the relevant slice of fs into the raw byte
// for group n.
func FunctionGroupByteFromSet(fs FunctionSet, n FunctionGroupNumber) (FunctionGroupByte, error) {
	shape, ok := functionGroupLayout[n]
	if !ok {
		return 0, fmt.Errorf("core: %d is not a valid function group number", n)
	}
	if n == FunctionGroup1 {
		return FunctionGroupByte(fs.Group1Byte() &^ 0x80), nil
	}
	var data byte
	for i := 0; i < shape.bits; i++ {
		data |= bit(fs.Get(shape.lowFunc+i), uint(i))
	}
	return FunctionGroupByte(data), nil
}

// ApplyToSet updates the functions addressed by group n in fs from the raw
// group byte.
func (g FunctionGroupByte) ApplyToSet(n FunctionGroupNumber, fs *FunctionSet) error {
	shape, ok := functionGroupLayout[n]
	if !ok {
		return fmt.Errorf("core: %d is not a valid function group number", n)
	}
	if n == FunctionGroup1 {
		fs.ApplyGroup1Byte(byte(g) | 0x80)
		return nil
	}
	for i := 0; i < shape.bits; i++ {
		fs.Set(shape.lowFunc+i, byte(g)&(1<<uint(i)) != 0)
	}
	return nil
}
