package chat

import (
	"fmt"
	"sync"
)

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	d.handlers[h.Event()] = h
	d.mu.Unlock()
}

func (d *Dispatcher) Dispatch(ctx *Context, f *Envelope, conn *Connection) error {
	h := d.GetHandler(f.Event)
	if h == nil {
		return fmt.Errorf("no handler for event=%q", f.Event)
	}
	return h.Handle(ctx, f, conn)
}

// GetHandler returns nil for an unknown event.
func (d *Dispatcher) GetHandler(event string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[event]
}
