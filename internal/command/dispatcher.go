package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// HandlerFactory builds a unit of work from a raw command payload. The
// factory runs before the pipeline, so decode errors surface inside the
// unit of work where the handler converts them into a failed result.
type HandlerFactory func(payload json.RawMessage) UnitOfWork

// Dispatcher maps action names to registered unit-of-work factories so
// transports can route the generic command envelope without knowing any
// business logic.
type Dispatcher struct {
	mu        sync.RWMutex
	factories map[string]HandlerFactory
	handler   *Handler
	publish   PublishFunc
}

// NewDispatcher creates a dispatcher that executes through the given
// pipeline handler and delivers events to publish (which may be nil).
func NewDispatcher(handler *Handler, publish PublishFunc) *Dispatcher {
	return &Dispatcher{
		factories: make(map[string]HandlerFactory),
		handler:   handler,
		publish:   publish,
	}
}

// Register binds an action name to a factory. Later registrations for the
// same action replace earlier ones.
func (d *Dispatcher) Register(action string, factory HandlerFactory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.factories[action] = factory
}

// Handles reports whether an action has a registered factory.
func (d *Dispatcher) Handles(action string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.factories[action]
	return ok
}

// Dispatch routes the command to its registered handler and runs the
// pipeline. Unregistered actions fail without touching the scope guard;
// there is nothing to authorize when nothing could run.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, payload json.RawMessage) Result {
	d.mu.RLock()
	factory, ok := d.factories[cmd.Action]
	d.mu.RUnlock()

	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("No handler registered for action %q", cmd.Action)}
	}
	return d.handler.Execute(ctx, cmd, factory(payload), d.publish)
}
