package device

import "errors"

// Session errors.
var (
	// ErrUnavailable indicates the board could not be found, opened or
	// claimed. Recovered by retrying Open; never fatal to the daemon.
	ErrUnavailable = errors.New("relay board unavailable")

	// ErrWriteFailed indicates a frame transfer errored or was short.
	// The session is closed by the time this is returned; the caller
	// owns the decision to reopen.
	ErrWriteFailed = errors.New("relay board write failed")
)
