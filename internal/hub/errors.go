// ABOUTME: Error taxonomy for the hub connection core.
// ABOUTME: Sentinel errors for transport state plus typed auth and remote-method errors.

package hub

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Transport errors
var (
	// ErrNotConnected is returned when a frame is sent with no open socket.
	ErrNotConnected = errors.New("hub: not connected")

	// ErrConnectionLost is delivered to every pending request when the
	// socket closes while requests are outstanding.
	ErrConnectionLost = errors.New("hub: connection lost")

	// ErrRequestTimeout is returned when no reply arrives within the call
	// timeout. The pending entry is removed, so a late reply is treated as
	// a notification rather than resolved twice.
	ErrRequestTimeout = errors.New("hub: request timed out")
)

// AuthError reports a deviation from the expected challenge-response
// sequence. It aborts Connect; no token is stored.
type AuthError struct {
	Step   int
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("hub: authentication step %d: %s", e.Step, e.Reason)
}

// RemoteError carries the error object from a method reply verbatim. The
// core does not reinterpret the server-supplied payload.
type RemoteError struct {
	Payload json.RawMessage
}

func (e *RemoteError) Error() string {
	return "hub: remote error: " + string(e.Payload)
}
