// Package events is an in-process publish/subscribe bus for domain events.
// Handlers run on their own goroutine and never block the emitter.
package events

import (
	"fmt"
	"sync"

	console "pageguard/internal/utils/logger"
)

var log = console.New("EVENTS")

// Event names emitted by the domain packages.
const (
	UserCreated     = "user.created"
	UserDeleted     = "user.deleted"
	GrantUpdated    = "permission.updated"
	CommentCreated  = "comment.created"
	CommentEdited   = "comment.edited"
	CommentDeleted  = "comment.deleted"
	PasswordReset   = "password.reset"
	ArchiveRecorded = "archive.recorded"
)

type EventHandler func(interface{})

type EventBus struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
	inflight sync.WaitGroup
}

var defaultBus = NewEventBus()

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
	}
}

// On registers a handler for an event
func (bus *EventBus) On(event string, handler EventHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers[event] = append(bus.handlers[event], handler)
	log.Debug("Registered handler for event: %s", event)
}

// Emit triggers an event with the given data
func (bus *EventBus) Emit(event string, data interface{}) {
	bus.mu.RLock()
	handlers := bus.handlers[event]
	bus.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	log.Debug("Emitting event: %s", event)

	for _, handler := range handlers {
		bus.inflight.Add(1)
		go func(h EventHandler) {
			defer bus.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					_ = log.Error("Panic in %s handler", fmt.Errorf("panic: %v", r), event)
				}
			}()
			h(data)
		}(handler)
	}
}

// Wait blocks until every handler started so far has returned.
func (bus *EventBus) Wait() {
	bus.inflight.Wait()
}

// On Global event functions that use the default event bus
func On(event string, handler EventHandler) {
	defaultBus.On(event, handler)
}

func Emit(event string, data interface{}) {
	defaultBus.Emit(event, data)
}

func Wait() {
	defaultBus.Wait()
}
