// Package xpressnet implements a deliberately thin slice of the Lenz
// XpressNet protocol: just enough of the station→device and device→station
// message taxonomy to demonstrate a bidirectional mapping onto the
// pkgs/core wire types (Address, Direction, Speed, FunctionGroupByte).
// pkgs/commandstation's Z21 client builds its own frames and does not use
// this package; the full XpressNet command set is out of scope (see spec
// Non-goals).
package xpressnet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/keskad/trackctl/pkgs/core"
)

// ErrUnknownDeviceMessage is returned by ParseDeviceMessage for any byte
// sequence outside the subset this package understands.
var ErrUnknownDeviceMessage = errors.New("xpressnet: unrecognized device message")

func withXor(b []byte) []byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return append(append([]byte{}, b...), x)
}

// StationState mirrors the XpressNet central-station status bitmask
// (command 0x62 0x22).
type StationState struct {
	EmergencyOff   bool
	EmergencyStop  bool
	AutomaticStart bool
	ServiceMode    bool
	PowerUp        bool
	RAMError       bool
}

// Bits packs the status flags into their single wire byte.
func (s StationState) Bits() byte {
	var b byte
	if s.EmergencyOff {
		b |= 0x01
	}
	if s.EmergencyStop {
		b |= 0x02
	}
	if s.AutomaticStart {
		b |= 0x04
	}
	if s.ServiceMode {
		b |= 0x08
	}
	if s.PowerUp {
		b |= 0x40
	}
	if s.RAMError {
		b |= 0x80
	}
	return b
}

// StationStateFromBits unpacks a received status byte.
func StationStateFromBits(b byte) StationState {
	return StationState{
		EmergencyOff:   b&0x01 != 0,
		EmergencyStop:  b&0x02 != 0,
		AutomaticStart: b&0x04 != 0,
		ServiceMode:    b&0x08 != 0,
		PowerUp:        b&0x40 != 0,
		RAMError:       b&0x80 != 0,
	}
}

// CentralKind discriminates the CentralMessage tagged union (station → device).
type CentralKind int

const (
	TrackPowerOn CentralKind = iota
	TrackPowerOff
	CentralEmergencyStop
	Version
	StationStateKind
	TransferError
	StationBusy
	UnknownCommand
	LocoInformation
)

// CentralMessage is one message sent from the command station down to a
// device (throttle, PC interface, ...).
type CentralMessage struct {
	Kind CentralKind

	VersionMajor byte // Version
	VersionMinor byte // Version

	State StationState // StationStateKind

	// LocoInformation demonstrates the bridge: the same core.Direction and
	// core.Speed values the DCC layer uses are folded into an XpressNet
	// "loco information" reply, reusing the baseline speed/direction byte
	// codec rather than inventing a parallel one.
	IsFree    bool
	Direction core.Direction
	Speed     core.Speed
	F0        core.FunctionGroupByte
	F1        core.FunctionGroupByte
}

// ToBytes renders m into its wire form, XOR-checksum trailer included.
func (m CentralMessage) ToBytes() ([]byte, error) {
	switch m.Kind {
	case TrackPowerOn:
		return withXor([]byte{0x61, 0x01}), nil
	case TrackPowerOff:
		return withXor([]byte{0x61, 0x00}), nil
	case CentralEmergencyStop:
		return withXor([]byte{0x81, 0x00}), nil
	case Version:
		return withXor([]byte{0x63, 0x21, m.VersionMajor, m.VersionMinor}), nil
	case StationStateKind:
		return withXor([]byte{0x62, 0x22, m.State.Bits()}), nil
	case TransferError:
		return withXor([]byte{0x61, 0x80}), nil
	case StationBusy:
		return withXor([]byte{0x61, 0x81}), nil
	case UnknownCommand:
		return withXor([]byte{0x61, 0x82}), nil
	case LocoInformation:
		db0 := byte(0x00)
		if !m.IsFree {
			db0 = 0x08
		}
		db1 := m.Direction.ToBaselineByte() | m.Speed.ToByte()
		return withXor([]byte{0xE4, db0, db1, byte(m.F0), byte(m.F1)}), nil
	default:
		return nil, fmt.Errorf("xpressnet: unrecognized central message kind %v", m.Kind)
	}
}

// DeviceKind discriminates the DeviceMessage tagged union (device → station).
type DeviceKind int

const (
	GetVersion DeviceKind = iota
	GetState
	LocoDrive
	SetFunctionGroup
)

// DeviceMessage is one message sent up from a device to the command
// station.
type DeviceMessage struct {
	Kind DeviceKind

	Address   core.Address             // LocoDrive, SetFunctionGroup
	Direction core.Direction            // LocoDrive
	Speed     core.Speed                // LocoDrive
	GroupNum  core.FunctionGroupNumber  // SetFunctionGroup
	GroupByte core.FunctionGroupByte    // SetFunctionGroup
}

// ParseDeviceMessage decodes the subset of device→station commands this
// package understands. Anything else is ErrUnknownDeviceMessage.
func ParseDeviceMessage(buf []byte) (DeviceMessage, error) {
	if bytes.HasPrefix(buf, []byte{0x21, 0x21, 0x00}) {
		return DeviceMessage{Kind: GetVersion}, nil
	}
	if bytes.HasPrefix(buf, []byte{0x21, 0x24, 0x05}) {
		return DeviceMessage{Kind: GetState}, nil
	}
	if len(buf) >= 4 && buf[0] == 0x12 {
		addr := core.Address(uint16(buf[1])<<8 | uint16(buf[2]))
		return DeviceMessage{
			Kind:      LocoDrive,
			Address:   addr,
			Direction: core.DirectionFromAdvancedByte(buf[3]),
			Speed:     core.SpeedFromByte128Steps(buf[3]),
		}, nil
	}
	if len(buf) >= 4 && buf[0]&0xF0 == 0x40 {
		groupNum := core.FunctionGroupNumber(buf[0] & 0x0F)
		addr := core.Address(uint16(buf[1])<<8 | uint16(buf[2]))
		return DeviceMessage{
			Kind:      SetFunctionGroup,
			Address:   addr,
			GroupNum:  groupNum,
			GroupByte: core.FunctionGroupByte(buf[3]),
		}, nil
	}
	return DeviceMessage{}, ErrUnknownDeviceMessage
}

// ToBytes renders m into its wire form. GetVersion/GetState carry no
// address or payload; LocoDrive/SetFunctionGroup mirror ParseDeviceMessage's
// framing.
func (m DeviceMessage) ToBytes() ([]byte, error) {
	switch m.Kind {
	case GetVersion:
		return []byte{0x21, 0x21, 0x00}, nil
	case GetState:
		return []byte{0x21, 0x24, 0x05}, nil
	case LocoDrive:
		speedByte := m.Direction.ToAdvancedByte() | m.Speed.ToByte()
		return []byte{0x12, byte(m.Address >> 8), byte(m.Address & 0xFF), speedByte}, nil
	case SetFunctionGroup:
		if m.GroupNum > 0x0F {
			return nil, fmt.Errorf("xpressnet: function group number %d out of range", m.GroupNum)
		}
		return []byte{0x40 | byte(m.GroupNum), byte(m.Address >> 8), byte(m.Address & 0xFF), byte(m.GroupByte)}, nil
	default:
		return nil, fmt.Errorf("xpressnet: unrecognized device message kind %v", m.Kind)
	}
}
