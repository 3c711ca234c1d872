package errors

import "errors"

var (
	// ErrStale marks a verification result that resolved after its gate was
	// closed or superseded. It was discarded.
	ErrStale = errors.New("verification result discarded: gate closed or superseded")

	ErrLocationUnsupported = errors.New("location capability unavailable")
	ErrPermissionDenied    = errors.New("location permission denied")

	ErrNotLobby = errors.New("channel is not a lobby")
)
