// Package relay holds the in-memory relay state: the 8-bit output mask
// and the desired/last-written bookkeeping the daemon folds filesystem
// events into.
package relay

import (
	"errors"
	"fmt"
)

// Channel numbering for the 8-channel board.
const (
	MinChannel = 1
	MaxChannel = 8
)

// ErrChannelRange reports a channel number outside MinChannel..MaxChannel.
var ErrChannelRange = errors.New("channel number out of range")

// Mask is the 8-bit relay output mask. Bit i (0-indexed) drives channel i+1.
type Mask uint8

// Test reports whether channel ch is set in the mask.
// Channels outside the valid range are never set.
func (m Mask) Test(ch int) bool {
	if ch < MinChannel || ch > MaxChannel {
		return false
	}
	return m&(1<<(ch-1)) != 0
}

// Set sets the bit for channel ch. Out-of-range channels are ignored.
func (m *Mask) Set(ch int) {
	if ch < MinChannel || ch > MaxChannel {
		return
	}
	*m |= 1 << (ch - 1)
}

// Clear clears the bit for channel ch. Out-of-range channels are ignored.
func (m *Mask) Clear(ch int) {
	if ch < MinChannel || ch > MaxChannel {
		return
	}
	*m &^= 1 << (ch - 1)
}

// String renders the mask as an 8-character binary string, channel 8 first.
func (m Mask) String() string {
	return fmt.Sprintf("%08b", uint8(m))
}

// FromChannels builds a mask with exactly the listed channels on.
// The first channel outside MinChannel..MaxChannel aborts with ErrChannelRange.
func FromChannels(channels []int) (Mask, error) {
	var m Mask
	for _, ch := range channels {
		if ch < MinChannel || ch > MaxChannel {
			return 0, fmt.Errorf("%w: %d (valid: %d-%d)", ErrChannelRange, ch, MinChannel, MaxChannel)
		}
		m.Set(ch)
	}
	return m, nil
}
