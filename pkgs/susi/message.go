// Package susi implements a non-blocking, cycle-incremental codec for the
// SUSI bus: a synchronous two-wire link (CLK push-pull, DATA open-drain)
// between a DCC decoder and its auxiliary modules. It provides the wire
// message format plus master (Writer) and slave (Reader) bus state
// machines, mirroring the cooperative, allocation-free style of pkgs/dcc.
package susi

import (
	"fmt"

	"github.com/keskad/trackctl/pkgs/core"
)

// Kind discriminates the Msg tagged union.
type Kind int

const (
	Noop Kind = iota
	TriggerPulse
	SpeedDiff
	MotorPower
	LocomotiveSpeed
	ControlSpeed
	LocomotiveLoad
	Analog
	FunctionGroup
	BinaryState
	CVByteCheck
	CVBitManipulation
	CVByteSet
	Unknown
)

const mask7 = 0x7F

// Msg is one SUSI protocol message, 2 or 3 bytes on the wire depending on
// Kind. Only the fields relevant to Kind are meaningful.
type Msg struct {
	Kind Kind

	SignedByte int8 // SpeedDiff, MotorPower

	Direction core.Direction // LocomotiveSpeed, ControlSpeed
	Speed7    uint8          // LocomotiveSpeed, ControlSpeed (7-bit, 0-127)

	Load7 uint8 // LocomotiveLoad (7-bit)

	AnalogNum   core.AnalogNumber   // Analog
	AnalogValue uint8               // Analog
	GroupNum    core.FunctionGroupNumber
	GroupByte   core.FunctionGroupByte

	BinaryAddr uint8 // BinaryState (7-bit)
	BinaryOn   bool

	CVAddr     uint8 // CVByteCheck, CVBitManipulation, CVByteSet
	CVValue    uint8 // CVByteCheck, CVByteSet
	CVCheck    bool  // CVBitManipulation
	CVBitValue bool  // CVBitManipulation
	CVPosition uint8 // CVBitManipulation, 0-7

	Raw [3]byte // Unknown
}

// LenFromByte reports the wire length (2 or 3 bytes) of a message given
// only its command byte, used by the Reader to know when a byte completes
// a message before it has decoded the rest.
func LenFromByte(cmd byte) int {
	switch cmd {
	case 0x77, 0x7B, 0x7F:
		return 3
	default:
		return 2
	}
}

// Len reports the wire length (2 or 3 bytes) of a fully decoded message.
func (m Msg) Len() int {
	switch m.Kind {
	case CVByteCheck, CVBitManipulation, CVByteSet, Unknown:
		return 3
	default:
		return 2
	}
}

// NeedsAck reports whether this message requires the master to arm the ACK
// phase after sending it: only the three CV programming messages do.
func (m Msg) NeedsAck() bool {
	switch m.Kind {
	case CVByteCheck, CVBitManipulation, CVByteSet:
		return true
	default:
		return false
	}
}

// ParseBytes decodes a 3-byte wire buffer into a Msg. The third byte is
// ignored for 2-byte messages.
func ParseBytes(buf [3]byte) Msg {
	cmd := buf[0]
	switch {
	case cmd == 0x00:
		return Msg{Kind: Noop}
	case cmd == 33:
		return Msg{Kind: TriggerPulse}
	case cmd == 34:
		return Msg{Kind: SpeedDiff, SignedByte: int8(buf[1])}
	case cmd == 35:
		return Msg{Kind: MotorPower, SignedByte: int8(buf[1])}
	case cmd == 36:
		return Msg{Kind: LocomotiveSpeed, Direction: core.DirectionFromAdvancedByte(buf[1]), Speed7: buf[1] & mask7}
	case cmd == 37:
		return Msg{Kind: ControlSpeed, Direction: core.DirectionFromAdvancedByte(buf[1]), Speed7: buf[1] & mask7}
	case cmd == 38:
		return Msg{Kind: LocomotiveLoad, Load7: buf[1] & mask7}
	case cmd >= 40 && cmd <= 47:
		return Msg{Kind: Analog, AnalogNum: core.AnalogNumber(cmd - 40), AnalogValue: buf[1]}
	case cmd >= 96 && cmd <= 104:
		groupNum := core.FunctionGroupNumber(cmd - 95)
		return Msg{Kind: FunctionGroup, GroupNum: groupNum, GroupByte: core.FunctionGroupByte(buf[1])}
	case cmd == 109:
		return Msg{Kind: BinaryState, BinaryAddr: buf[1] & mask7, BinaryOn: buf[1]&0x80 == 0x80}
	case cmd == 119:
		if buf[1]&0x80 == 0x80 {
			return Msg{Kind: CVByteCheck, CVAddr: buf[1], CVValue: buf[2]}
		}
		return Msg{Kind: Unknown, Raw: buf}
	case cmd == 123:
		if buf[1]&0x80 == 0x80 {
			return Msg{
				Kind:       CVBitManipulation,
				CVAddr:     buf[1],
				CVCheck:    buf[2]&0x10 == 0x10,
				CVBitValue: buf[2]&0x08 == 0x08,
				CVPosition: buf[2] & 0x07,
			}
		}
		return Msg{Kind: Unknown, Raw: buf}
	case cmd == 127:
		if buf[1]&0x80 == 0x80 {
			return Msg{Kind: CVByteSet, CVAddr: buf[1], CVValue: buf[2]}
		}
		return Msg{Kind: Unknown, Raw: buf}
	default:
		return Msg{Kind: Unknown, Raw: buf}
	}
}

// ToBytes renders m into its 3-byte wire form (the trailing byte is 0x00
// and ignored by the receiver for 2-byte messages).
func (m Msg) ToBytes() ([3]byte, error) {
	switch m.Kind {
	case Noop:
		return [3]byte{0x00, 0x00, 0x00}, nil
	case TriggerPulse:
		return [3]byte{33, 0x01, 0x00}, nil
	case SpeedDiff:
		return [3]byte{34, byte(m.SignedByte), 0x00}, nil
	case MotorPower:
		return [3]byte{35, byte(m.SignedByte), 0x00}, nil
	case LocomotiveSpeed:
		return [3]byte{36, m.Direction.ToAdvancedByte() | (m.Speed7 & mask7), 0x00}, nil
	case ControlSpeed:
		return [3]byte{37, m.Direction.ToAdvancedByte() | (m.Speed7 & mask7), 0x00}, nil
	case LocomotiveLoad:
		return [3]byte{38, m.Load7 & mask7, 0x00}, nil
	case Analog:
		if !(m.AnalogNum <= core.MaxAnalogNumber) {
			return [3]byte{}, fmt.Errorf("susi: analog number %d out of range", m.AnalogNum)
		}
		return [3]byte{40 + byte(m.AnalogNum), m.AnalogValue, 0x00}, nil
	case FunctionGroup:
		if m.GroupNum < 1 || m.GroupNum > 9 {
			return [3]byte{}, fmt.Errorf("susi: function group number %d out of range", m.GroupNum)
		}
		return [3]byte{95 + byte(m.GroupNum), byte(m.GroupByte), 0x00}, nil
	case BinaryState:
		var on byte
		if m.BinaryOn {
			on = 0x80
		}
		return [3]byte{109, on | (m.BinaryAddr & mask7), 0x00}, nil
	case CVByteCheck:
		return [3]byte{119, 0x80 | (m.CVAddr & mask7), m.CVValue}, nil
	case CVBitManipulation:
		var check, val byte
		if m.CVCheck {
			check = 1
		}
		if m.CVBitValue {
			val = 1
		}
		return [3]byte{123, 0x80 | (m.CVAddr & mask7), 0xE0 | (check << 4) | (val << 3) | (m.CVPosition & 0x07)}, nil
	case CVByteSet:
		return [3]byte{127, 0x80 | (m.CVAddr & mask7), m.CVValue}, nil
	case Unknown:
		return m.Raw, nil
	default:
		return [3]byte{}, fmt.Errorf("susi: unrecognized message kind %v", m.Kind)
	}
}
