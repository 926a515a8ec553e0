package watcher

import (
	"strconv"
	"strings"

	"github.com/schaapsound/relayd/pkg/relay"
)

// markerPrefix is the fixed prefix of channel marker filenames.
const markerPrefix = "D_OUT_"

// MarkerName returns the marker filename for channel ch.
func MarkerName(ch int) string {
	return markerPrefix + strconv.Itoa(ch)
}

// Channel extracts the channel number from a marker filename.
// Names that do not match D_OUT_<integer>, or whose number falls
// outside the channel range, report ok=false and are to be ignored.
func Channel(name string) (ch int, ok bool) {
	rest, found := strings.CutPrefix(name, markerPrefix)
	if !found || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < relay.MinChannel || n > relay.MaxChannel {
		return 0, false
	}
	// Reject aliases like D_OUT_08 or D_OUT_+8.
	if rest != strconv.Itoa(n) {
		return 0, false
	}
	return n, true
}
