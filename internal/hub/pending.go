// ABOUTME: Pending-request table correlating outbound frames with inbound replies.
// ABOUTME: Monotonic id assignment plus one-shot completion slots per request.

package hub

import (
	"encoding/json"
	"sync"
)

// outcome is the one-shot completion of a pending request: a result payload
// or a failure, never both.
type outcome struct {
	result json.RawMessage
	err    error
}

// pendingTable tracks in-flight requests by id. The receive loop is the only
// resolver; callers register, await, and deregister. Goroutines run in
// parallel, so the table is mutex-guarded.
type pendingTable struct {
	mu      sync.Mutex
	lastID  int64
	waiting map[int64]chan outcome
}

func newPendingTable() *pendingTable {
	return &pendingTable{waiting: make(map[int64]chan outcome)}
}

// next returns the next request id. Ids start at 1, increase strictly, and
// are never reused within a session.
func (t *pendingTable) next() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastID++
	return t.lastID
}

// register creates the completion slot for id. The channel is buffered so the
// receive loop never blocks on delivery.
func (t *pendingTable) register(id int64) <-chan outcome {
	ch := make(chan outcome, 1)
	t.mu.Lock()
	t.waiting[id] = ch
	t.mu.Unlock()
	return ch
}

// resolve completes the request with a result payload. Reports whether a
// pending entry existed; a false return means the reply is a notification.
func (t *pendingTable) resolve(id int64, result json.RawMessage) bool {
	return t.complete(id, outcome{result: result})
}

// reject completes the request with a failure.
func (t *pendingTable) reject(id int64, err error) bool {
	return t.complete(id, outcome{err: err})
}

func (t *pendingTable) complete(id int64, out outcome) bool {
	t.mu.Lock()
	ch, ok := t.waiting[id]
	if ok {
		delete(t.waiting, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- out
	return true
}

// drop removes a pending entry without completing it. Used on timeout and
// cancellation so a late reply becomes an orphan notification.
func (t *pendingTable) drop(id int64) {
	t.mu.Lock()
	delete(t.waiting, id)
	t.mu.Unlock()
}

// failAll rejects every pending request with err. Called exactly once from
// connection teardown so no caller is left hanging.
func (t *pendingTable) failAll(err error) {
	t.mu.Lock()
	waiting := t.waiting
	t.waiting = make(map[int64]chan outcome)
	t.mu.Unlock()

	for _, ch := range waiting {
		ch <- outcome{err: err}
	}
}

// size reports the number of in-flight requests.
func (t *pendingTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiting)
}
