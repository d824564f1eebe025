package browser

import "sync"

// notifyHub fans page mutation callbacks out to subscribers. Sends never
// block: a subscriber that has not drained its last notification simply
// sees one coalesced notification.
type notifyHub struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func newNotifyHub() *notifyHub {
	return &notifyHub{subs: make(map[int]chan struct{})}
}

func (h *notifyHub) subscribe() (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan struct{}, 1)
	h.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
		})
	}
}

func (h *notifyHub) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *notifyHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
