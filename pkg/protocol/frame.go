// Package protocol implements the CH341A relay board command framing:
// fixed 11-byte frames carrying a single command byte, and the ordered
// frame sequence that pushes a full output mask to the board.
//
// The byte layout is a hardware contract and must be reproduced exactly.
package protocol

// FrameLen is the size of one command frame on the wire.
const FrameLen = 11

// Frame prefix and suffix as expected by the board firmware.
var (
	framePrefix = [5]byte{0xa1, 0x6a, 0x1f, 0x00, 0x10}
	frameSuffix = [5]byte{0x3f, 0x00, 0x00, 0x00, 0x00}
)

// Command bytes of the output-latch handshake.
const (
	cmdIdle   = 0x00 // all lines low
	cmdBit    = 0x20 // data line high
	cmdBitClk = 0x28 // data high, clock pulse
	cmdClk    = 0x08 // clock pulse, data low
	cmdLatch  = 0x01 // latch outputs
)

// BuildFrame assembles the 11-byte command frame for a single command byte.
func BuildFrame(cmd byte) []byte {
	buf := make([]byte, 0, FrameLen)
	buf = append(buf, framePrefix[:]...)
	buf = append(buf, cmd)
	buf = append(buf, frameSuffix[:]...)
	return buf
}
