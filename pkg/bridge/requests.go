package bridge

import "sync"

// localRequests carries work the interactive loop asks the dispatcher to do.
// Buffer edits are whole-text replacements, so only the latest one matters:
// posting never blocks and never loses the newest edit.
type localRequests struct {
	mu       sync.Mutex
	edit     *string
	announce bool // report the pending edit to the controller as BufferChanged
	reload   bool
	signal   chan struct{}
}

func newLocalRequests() *localRequests {
	return &localRequests{signal: make(chan struct{}, 1)}
}

func (q *localRequests) postEdit(text string, announce bool) {
	q.mu.Lock()
	q.edit = &text
	q.announce = q.announce || announce
	q.mu.Unlock()
	q.wake()
}

func (q *localRequests) postReload() {
	q.mu.Lock()
	q.reload = true
	q.mu.Unlock()
	q.wake()
}

// take returns and clears the pending requests.
func (q *localRequests) take() (edit *string, announce, reload bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	edit, announce, reload = q.edit, q.announce, q.reload
	q.edit, q.announce, q.reload = nil, false, false
	return edit, announce, reload
}

func (q *localRequests) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
