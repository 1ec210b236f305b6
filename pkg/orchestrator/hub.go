package orchestrator

import (
	"sync"

	"github.com/entrhq/chatsweep/pkg/types"
)

// DefaultSubscriberBuffer is the channel size used when Subscribe gets zero.
const DefaultSubscriberBuffer = 256

// hub fans events out to synchronous sinks and buffered subscriber channels.
// A full subscriber channel drops the event rather than stall a run.
type hub struct {
	mu    sync.RWMutex
	sinks []types.Emitter
	subs  map[int]chan types.Event
	next  int
}

func newHub(sinks ...types.Emitter) *hub {
	h := &hub{subs: make(map[int]chan types.Event)}
	for _, s := range sinks {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
	return h
}

func (h *hub) Emit(e types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.sinks {
		s.Emit(e)
	}
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			debugLog.Warnf("subscriber %d is full, dropping %s event", id, e.Type)
		}
	}
}

func (h *hub) subscribe(buffer int) (<-chan types.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan types.Event, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}
