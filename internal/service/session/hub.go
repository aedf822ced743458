package session

import (
	"log/slog"
	"sync"

	"outliner/internal/domain/services"
)

// subscriberBuffer bounds how far a slow SSE client may fall behind before events are dropped.
// State events carry the full tree, so a dropped one is repaired by the next.
const subscriberBuffer = 64

type subscriber struct {
	ch          chan services.SessionEvent
	lastVersion uint64
}

// hub fans session events out to subscribers without blocking the publisher.
type hub struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
	logger *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		subs:   make(map[int]*subscriber),
		logger: logger,
	}
}

// subscribe registers a subscriber whose first event is initial(). initial runs under the hub
// lock, so no state event older than it is delivered afterwards.
func (h *hub) subscribe(initial func() services.SessionEvent) (int, <-chan services.SessionEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}

	first := initial()
	sub := &subscriber{
		ch:          make(chan services.SessionEvent, subscriberBuffer),
		lastVersion: first.Version,
	}
	sub.ch <- first

	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	return id, sub.ch, true
}

func (h *hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// publish delivers ev to every subscriber. State events at or below a subscriber's last
// version are skipped.
func (h *hub) publish(ev services.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if ev.Type == services.EventState {
			if ev.Version <= sub.lastVersion {
				continue
			}
			sub.lastVersion = ev.Version
		}
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("dropping session event for slow subscriber", "subscriber", id, "type", ev.Type)
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// close ends every subscription.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
