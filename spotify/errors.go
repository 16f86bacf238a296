package spotify

import (
	"errors"
	"fmt"
)

// ErrTokenExpired is returned when a protected endpoint answers 401. The
// frontend is expected to run its refresh flow on this signal, so it must
// stay distinguishable from other upstream failures.
var ErrTokenExpired = errors.New("access token expired")

// ErrNothingPlaying is returned when the currently-playing endpoint
// answers 204, meaning no track is playing right now.
var ErrNothingPlaying = errors.New("nothing currently playing")

// StatusError is a non-2xx answer from Spotify, carrying the original
// status code so handlers can forward it.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify returned status %d: %s", e.Code, e.Body)
}
