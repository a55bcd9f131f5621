// Package hub implements the persistent WebSocket session against a
// Sprut.hub controller's JSON-RPC control plane.
//
// # Overview
//
// One Client owns one socket. All concurrent callers share that socket; a
// single background receive loop demultiplexes inbound frames back to the
// caller that sent the matching request.
//
// # Request/Response Correlation
//
// Every outbound frame carries a monotonically increasing integer id. The
// Client keeps a table of pending requests:
//
//	waiting map[int64]chan outcome
//
// Callers register an id, send, and await its one-shot channel. The receive
// loop is the only resolver: it completes the matching channel when a reply
// arrives, and treats replies with no pending id as notifications. Requests
// may complete in any order; correctness depends only on the id, never on
// arrival order.
//
// # Authentication
//
// Immediately after the socket opens, Connect runs the hub's 3-step
// challenge-response exchange (initiate, answer email, answer password) and
// stores the issued session token on the Client. Invoke blocks on a ready
// gate until this completes, so early callers queue instead of failing.
//
// # Lifecycle
//
// There is no reconnect. When the socket closes, every pending request fails
// with ErrConnectionLost, the token is cleared, and the Client is dead; the
// caller constructs a fresh Client to reconnect.
package hub
