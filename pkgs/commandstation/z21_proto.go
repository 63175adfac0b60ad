package commandstation

import (
	"encoding/binary"

	"github.com/keskad/trackctl/pkgs/core"
)

// Read: LAN_X_CV_POM_READ_BYTE (E6 30 … option 0xE4)
func (z *Z21Roco) buildPomReadPacket(lcv LocoCV) []byte {
	const dataLen, header = 0x000C, 0x0040
	cvWire := lcv.Cv.Translate()

	adrMSB := byte((lcv.LocoId >> 8) & 0x3F)
	if lcv.LocoId >= 128 {
		adrMSB |= 0xC0
	}
	adrLSB := byte(lcv.LocoId & 0xFF)
	db3 := byte(0xE4 | byte((cvWire>>8)&0x03)) // 111001MM
	db4 := byte(cvWire & 0xFF)
	x := []byte{0xE6, 0x30, adrMSB, adrLSB, db3, db4, 0x00}
	x = append(x, xorSum(x))
	buf := make([]byte, 0, 2+2+len(x))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, dataLen)
	buf = append(buf, tmp...)
	binary.LittleEndian.PutUint16(tmp, header)
	buf = append(buf, tmp...)
	return append(buf, x...)
}

// Write BYTE: LAN_X_CV_POM_WRITE_BYTE (E6 30 … option 0xEC)
func (z *Z21Roco) buildPomWriteByte(lcv LocoCV) []byte {
	const dataLen, header = 0x000C, 0x0040
	addr := lcv.LocoId
	cvWire := lcv.Cv.Translate()
	value := byte(lcv.Cv.Value)

	adrMSB := byte((addr >> 8) & 0x3F)
	if addr >= 128 {
		adrMSB |= 0xC0
	}
	adrLSB := byte(addr & 0xFF)
	db3 := byte(0xEC | byte((cvWire>>8)&0x03)) // 111011MM
	db4 := byte(cvWire & 0xFF)
	x := []byte{0xE6, 0x30, adrMSB, adrLSB, db3, db4, value}
	x = append(x, xorSum(x))
	buf := make([]byte, 0, 2+2+len(x))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, dataLen)
	buf = append(buf, tmp...)
	binary.LittleEndian.PutUint16(tmp, header)
	buf = append(buf, tmp...)
	return append(buf, x...)
}

// ===== PROG (Programming Track / Direct Mode) =====
// Read: LAN_X_CV_READ (23 11)
func (z *Z21Roco) buildProgReadPacket(cv CV) []byte {
	const dataLen, header = 0x0009, 0x0040
	cvWire := cv.Translate()

	x := []byte{0x23, 0x11, byte(cvWire >> 8), byte(cvWire & 0xFF)}
	x = append(x, xorSum(x))
	buf := make([]byte, 0, 2+2+len(x))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, dataLen)
	buf = append(buf, tmp...)
	binary.LittleEndian.PutUint16(tmp, header)
	buf = append(buf, tmp...)
	return append(buf, x...)
}

// Write: LAN_X_CV_WRITE (24 12)
func (z *Z21Roco) buildProgWritePacket(lcv LocoCV) []byte {
	const dataLen, header = 0x000A, 0x0040
	cvWire := lcv.Cv.Translate()
	value := byte(lcv.Cv.Value)

	x := []byte{0x24, 0x12, byte(cvWire >> 8), byte(cvWire & 0xFF), value}
	x = append(x, xorSum(x))
	buf := make([]byte, 0, 2+2+len(x))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, dataLen)
	buf = append(buf, tmp...)
	binary.LittleEndian.PutUint16(tmp, header)
	buf = append(buf, tmp...)
	return append(buf, x...)
}

// addrBytes encodes a locomotive address as the MSB/LSB pair every LAN_X
// frame below carries: the top two bits of the MSB byte are set to mark a
// long (>=128) address, matching the POM/PROG address encoding above.
func addrBytes(addr LocoAddr) (msb byte, lsb byte) {
	msb = byte((addr >> 8) & 0x3F)
	if addr >= 128 {
		msb |= 0xC0
	}
	lsb = byte(addr & 0xFF)
	return msb, lsb
}

// buildSetLocoFunction builds LAN_X_SET_LOCO_FUNCTION (X-Header 0xF8). DB2
// packs a 2-bit switch type in bits 7-6 (00=off, 01=on, 10=toggle) and the
// function number in bits 5-0. This command station only ever drives the
// function to an explicit state, so only off/on are used here; on selects
// which.
func (z *Z21Roco) buildSetLocoFunction(addr LocoAddr, fn int, on bool) []byte {
	const dataLen, header = 0x0009, 0x0040
	adrMSB, adrLSB := addrBytes(addr)

	const fnSwitchOn = 0x40
	db2 := byte(fn & 0x3F)
	if on {
		db2 |= fnSwitchOn
	}

	x := []byte{0xF8, adrMSB, adrLSB, db2}
	x = append(x, xorSum(x))
	buf := make([]byte, 0, 2+2+len(x))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, dataLen)
	buf = append(buf, tmp...)
	binary.LittleEndian.PutUint16(tmp, header)
	buf = append(buf, tmp...)
	return append(buf, x...)
}

// buildGetLocoInfo builds LAN_X_GET_LOCO_INFO (X-Header 0xE3, DB0 0xF0),
// requesting the command station's cached speed/direction/function state
// for addr. The reply is LAN_X_LOCO_INFO, parsed by parseLocoInfo.
func (z *Z21Roco) buildGetLocoInfo(addr LocoAddr) []byte {
	const dataLen, header = 0x0009, 0x0040
	adrMSB, adrLSB := addrBytes(addr)

	x := []byte{0xE3, 0xF0, adrMSB, adrLSB}
	x = append(x, xorSum(x))
	buf := make([]byte, 0, 2+2+len(x))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, dataLen)
	buf = append(buf, tmp...)
	binary.LittleEndian.PutUint16(tmp, header)
	buf = append(buf, tmp...)
	return append(buf, x...)
}

// speedStepsMode maps a speed-step count to the LAN_X_SET_LOCO_DRIVE DB0
// mode nibble (lower 4 bits): 14, 28 or 128 steps. Anything else falls back
// to 128-step mode, the most common and most granular.
func speedStepsMode(speedSteps uint8) byte {
	switch speedSteps {
	case 14:
		return 0x10
	case 28:
		return 0x12
	default:
		return 0x13
	}
}

// buildSetLocoDrive builds LAN_X_SET_LOCO_DRIVE (X-Header 0xE4). DB3 packs
// direction in bit 7 (1=forward) and the speed value in bits 6-0. speed is
// taken in the same advanced-byte convention pkgs/core.Speed already uses
// for pkgs/dcc and pkgs/xpressnet (0=stop, 1=emergency stop, 2-127=running
// steps) and round-tripped through it rather than packed by hand here.
func (z *Z21Roco) buildSetLocoDrive(addr LocoAddr, speed uint8, forward bool, speedSteps uint8) []byte {
	const dataLen, header = 0x000A, 0x0040
	adrMSB, adrLSB := addrBytes(addr)

	direction := core.Backward
	if forward {
		direction = core.Forward
	}
	db3 := direction.ToAdvancedByte() | core.SpeedFromByte128Steps(speed).ToByte()

	x := []byte{0xE4, speedStepsMode(speedSteps), adrMSB, adrLSB, db3}
	x = append(x, xorSum(x))
	buf := make([]byte, 0, 2+2+len(x))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, dataLen)
	buf = append(buf, tmp...)
	binary.LittleEndian.PutUint16(tmp, header)
	buf = append(buf, tmp...)
	return append(buf, x...)
}

// Track power ON (get back from programming mode)
func (z *Z21Roco) buildTrackPowerOn() []byte {
	const dataLen, header = 0x0007, 0x0040
	x := []byte{0x21, 0x81}
	x = append(x, xorSum(x))
	buf := make([]byte, 0, 2+2+len(x))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, dataLen)
	buf = append(buf, tmp...)
	binary.LittleEndian.PutUint16(tmp, header)
	buf = append(buf, tmp...)
	return append(buf, x...)
}
