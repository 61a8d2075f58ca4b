package jsonsocket

import (
	"errors"
	"fmt"
	"sync"
)

// listener is a registered event handler
type listener struct {
	handler any
	once    bool
}

// Emitter maintains ordered lists of event listeners keyed by event name. The
// zero value is ready to use. Emitter is safe for concurrent use, but listeners
// are always called on the goroutine that calls Emit.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*listener
}

// On adds a listener for the specified event. Listeners are called in the order
// they were added. handler must be a function; see Emit for how arguments are
// passed to it.
func (e *Emitter) On(event string, handler any) {
	e.add(event, &listener{handler: handler})
}

// Once adds a one-time listener for the specified event. The listener is
// removed before it is called.
func (e *Emitter) Once(event string, handler any) {
	e.add(event, &listener{handler: handler, once: true})
}

func (e *Emitter) once(event string, handler any) *listener {
	l := &listener{handler: handler, once: true}
	e.add(event, l)
	return l
}

// Off removes all listeners for the specified event.
func (e *Emitter) Off(event string) {
	e.mu.Lock()
	delete(e.listeners, event)
	e.mu.Unlock()
}

// ListenerCount returns the number of listeners for the specified event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// remove removes l if it is still registered for event
func (e *Emitter) remove(event string, l *listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.listeners[event]
	for i, c := range current {
		if c != l {
			continue
		}
		kept := make([]*listener, 0, len(current)-1)
		kept = append(append(kept, current[:i]...), current[i+1:]...)
		if len(kept) == 0 {
			delete(e.listeners, event)
		} else {
			e.listeners[event] = kept
		}
		return
	}
}

func (e *Emitter) add(event string, l *listener) {
	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	e.listeners[event] = append(e.listeners[event], l)
	e.mu.Unlock()
}

// Emit synchronously calls every listener registered for event, in
// registration order, with the given arguments. A listener may declare fewer
// parameters than arguments supplied; the extra arguments are dropped.
// Arguments are converted to the listener's parameter types where possible.
// Listeners added while emitting are not called until the next Emit. Returns
// an error joining every listener that could not be called.
func (e *Emitter) Emit(event string, args ...any) error {
	e.mu.Lock()
	current := e.listeners[event]
	if len(current) == 0 {
		e.mu.Unlock()
		return nil
	}
	snapshot := make([]*listener, len(current))
	copy(snapshot, current)
	// Remove "once" listeners before calling any of them
	kept := current[:0:0]
	for _, l := range current {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, event)
	} else {
		e.listeners[event] = kept
	}
	e.mu.Unlock()

	var errs []error
	for i, l := range snapshot {
		if err := callHandler(l.handler, args); err != nil {
			errs = append(errs, fmt.Errorf("%q listener %d: %w", event, i, err))
		}
	}
	return errors.Join(errs...)
}
