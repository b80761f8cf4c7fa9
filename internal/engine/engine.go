// Package engine is the in-process event bus observation packets travel on.
// Sources dispatch events; services bind handlers to the event types they
// care about.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HoracioDos/weewx-zabbix/internal/logger"
)

// EventType identifies what kind of record an event carries.
type EventType int

const (
	// NewLoopPacket carries a fresh observation from the station.
	NewLoopPacket EventType = iota + 1
	// NewArchiveRecord carries an aggregated record for an archive period.
	NewArchiveRecord
)

func (t EventType) String() string {
	switch t {
	case NewLoopPacket:
		return "loop"
	case NewArchiveRecord:
		return "archive"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// ParseEventType maps "loop" or "archive" to its EventType.
func ParseEventType(s string) (EventType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "loop":
		return NewLoopPacket, nil
	case "archive":
		return NewArchiveRecord, nil
	default:
		return 0, fmt.Errorf("unknown event type %q (supported: loop, archive)", s)
	}
}

// Event is a single dispatch.
type Event struct {
	Type   EventType
	Packet *Packet
	Time   time.Time
}

// Handler reacts to an event. It runs on the dispatching goroutine.
type Handler func(ctx context.Context, event Event)

// Binder registers handlers. Services depend on it rather than on *Engine.
type Binder interface {
	Bind(t EventType, h Handler)
}

// Dispatcher delivers events to bound handlers.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// Engine is a synchronous Binder and Dispatcher.
type Engine struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// New creates an engine with no handlers.
func New() *Engine {
	return &Engine{handlers: make(map[EventType][]Handler)}
}

// Bind appends h to the handlers of t.
func (e *Engine) Bind(t EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[t] = append(e.handlers[t], h)

	log := logger.WithComponent("engine")
	log.Debug().
		Str("event", t.String()).
		Int("handlers", len(e.handlers[t])).
		Msg("Handler bound")
}

// Bound returns the number of handlers bound to t.
func (e *Engine) Bound(t EventType) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[t])
}

// Dispatch runs every handler bound to event.Type in bind order and returns
// once all of them have. A panicking handler is logged and does not stop
// the remaining handlers.
func (e *Engine) Dispatch(ctx context.Context, event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers[event.Type]))
	copy(handlers, e.handlers[event.Type])
	e.mu.RUnlock()

	for _, h := range handlers {
		e.invoke(ctx, h, event)
	}
}

func (e *Engine) invoke(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log := logger.WithComponent("engine")
			log.Error().
				Str("event", event.Type.String()).
				Interface("panic", r).
				Msg("Handler panicked")
		}
	}()
	h(ctx, event)
}
