package live

import (
	"encoding/json"
	"sync"

	"github.com/venueops/go-order-tracking/internal/tracking"
)

// Unsubscribe removes one previously registered handler. Safe to call more
// than once.
type Unsubscribe func()

// subscribers is one typed fan-out slot. Handlers are invoked on the
// channel's read goroutine, in registration order.
type subscribers[T any] struct {
	mu  sync.Mutex
	seq int
	m   map[int]func(T)
}

func (s *subscribers[T]) add(fn func(T)) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[int]func(T))
	}
	id := s.seq
	s.seq++
	s.m[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.m, id)
		s.mu.Unlock()
	}
}

func (s *subscribers[T]) emit(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.m))
	for i := 0; i < s.seq; i++ {
		if fn, ok := s.m[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Emitter dispatches inbound envelopes to typed subscriptions. Any number
// of handlers may be registered per event; each registration returns its
// own unsubscribe handle.
type Emitter struct {
	orderCreated  subscribers[tracking.OrderTracking]
	orderStatus   subscribers[tracking.LiveOrderUpdate]
	tableStatus   subscribers[TableStatusUpdate]
	menuItem      subscribers[MenuItemUpdate]
	notifications subscribers[Notification]
	venueStatus   subscribers[json.RawMessage]
	errs          subscribers[error]
}

func (e *Emitter) OnOrderCreated(fn func(tracking.OrderTracking)) Unsubscribe {
	return e.orderCreated.add(fn)
}

func (e *Emitter) OnOrderStatus(fn func(tracking.LiveOrderUpdate)) Unsubscribe {
	return e.orderStatus.add(fn)
}

func (e *Emitter) OnTableStatus(fn func(TableStatusUpdate)) Unsubscribe {
	return e.tableStatus.add(fn)
}

func (e *Emitter) OnMenuItem(fn func(MenuItemUpdate)) Unsubscribe {
	return e.menuItem.add(fn)
}

func (e *Emitter) OnNotification(fn func(Notification)) Unsubscribe {
	return e.notifications.add(fn)
}

func (e *Emitter) OnVenueStatus(fn func(json.RawMessage)) Unsubscribe {
	return e.venueStatus.add(fn)
}

func (e *Emitter) OnError(fn func(error)) Unsubscribe {
	return e.errs.add(fn)
}
