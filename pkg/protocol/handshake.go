package protocol

import (
	"fmt"

	"github.com/schaapsound/relayd/pkg/relay"
)

// SequenceLen is the number of frames in a full mask push:
// one opening frame, three per channel, two closing frames.
const SequenceLen = 1 + 3*8 + 2

// Transport writes a single command frame to the device.
// Implementations must report an error on any short write.
type Transport interface {
	WriteFrame(frame []byte) error
}

// Sequence returns the command bytes of the full handshake that pushes
// mask to the board, in wire order. Channels are shifted out
// most-significant bit first: channel 8 first, channel 1 last.
func Sequence(mask relay.Mask) []byte {
	seq := make([]byte, 0, SequenceLen)
	seq = append(seq, cmdIdle)
	for bit := uint8(128); bit > 0; bit >>= 1 {
		if uint8(mask)&bit != 0 {
			seq = append(seq, cmdBit, cmdBitClk, cmdBit)
		} else {
			seq = append(seq, cmdIdle, cmdClk, cmdIdle)
		}
	}
	seq = append(seq, cmdIdle, cmdLatch)
	return seq
}

// Push transmits the full handshake for mask over t, one frame per
// command byte. The first frame failure aborts the remaining sequence;
// the board is then in an unspecified intermediate state and the caller
// must re-establish the connection rather than retry the frame.
func Push(t Transport, mask relay.Mask) error {
	for i, cmd := range Sequence(mask) {
		if err := t.WriteFrame(BuildFrame(cmd)); err != nil {
			return fmt.Errorf("frame %d/%d (cmd 0x%02x): %w", i+1, SequenceLen, cmd, err)
		}
	}
	return nil
}
