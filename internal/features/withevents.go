package features

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/barun-bash/vbport/internal/value"
)

// Handler receives the arguments of a fired event.
type Handler func(args ...value.Value)

// EventHandler names the procedure connected to one event of a binding.
type EventHandler struct {
	Event     string
	Procedure string
}

// WithEventsBinding is a variable declared WithEvents and the handlers
// attached to it.
type WithEventsBinding struct {
	Module   string
	Variable string
	Type     string

	handlers map[string]Handler
	procs    map[string]EventHandler
}

// Handlers returns the connected procedures ordered by event name.
func (b *WithEventsBinding) Handlers() []EventHandler {
	out := make([]EventHandler, 0, len(b.procs))
	for _, h := range b.procs {
		out = append(out, h)
	}
	slices.SortFunc(out, func(x, y EventHandler) int {
		return cmp.Compare(fold(x.Event), fold(y.Event))
	})
	return out
}

type bindingKey struct{ module, variable string }

// WithEvents tracks WithEvents variables per module.
type WithEvents struct {
	scope
	bindings map[bindingKey]*WithEventsBinding
}

func NewWithEvents() *WithEvents {
	return &WithEvents{bindings: make(map[bindingKey]*WithEventsBinding)}
}

func (w *WithEvents) key(variable string) bindingKey {
	return bindingKey{fold(w.module), fold(variable)}
}

// Bind registers variable as a WithEvents variable of typeName. Binding an
// existing variable again replaces its type and keeps its handlers.
func (w *WithEvents) Bind(variable, typeName string) error {
	if err := w.require(); err != nil {
		return err
	}
	k := w.key(variable)
	if b, ok := w.bindings[k]; ok {
		b.Type = typeName
		return nil
	}
	w.bindings[k] = &WithEventsBinding{
		Module:   w.module,
		Variable: variable,
		Type:     typeName,
		handlers: make(map[string]Handler),
		procs:    make(map[string]EventHandler),
	}
	return nil
}

// Lookup returns the binding of variable in the current module.
func (w *WithEvents) Lookup(variable string) (*WithEventsBinding, bool) {
	b, ok := w.bindings[w.key(variable)]
	return b, ok
}

// Connect attaches handler to an event of a bound variable.
func (w *WithEvents) Connect(variable, event string, handler Handler) error {
	b, ok := w.Lookup(variable)
	if !ok {
		return fmt.Errorf("cannot connect %s_%s: %q is not declared WithEvents", variable, event, variable)
	}
	b.handlers[fold(event)] = handler
	return nil
}

// ConnectProcedure records that procedure handles an event of a bound
// variable. The code generator wires these by name.
func (w *WithEvents) ConnectProcedure(variable, event, procedure string) error {
	b, ok := w.Lookup(variable)
	if !ok {
		return fmt.Errorf("cannot connect %s: %q is not declared WithEvents", procedure, variable)
	}
	b.procs[fold(event)] = EventHandler{Event: event, Procedure: procedure}
	return nil
}

// Fire invokes the handler attached to an event. Firing on an unbound
// variable, or an event nobody handles, does nothing.
func (w *WithEvents) Fire(variable, event string, args ...value.Value) {
	b, ok := w.Lookup(variable)
	if !ok {
		return
	}
	if h := b.handlers[fold(event)]; h != nil {
		h(args...)
	}
}

// Bindings returns the current module's bindings ordered by variable.
func (w *WithEvents) Bindings() []*WithEventsBinding {
	mod := fold(w.module)
	var out []*WithEventsBinding
	for k, b := range w.bindings {
		if k.module == mod {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(x, y *WithEventsBinding) int {
		return cmp.Compare(fold(x.Variable), fold(y.Variable))
	})
	return out
}

func (w *WithEvents) forget(module string) {
	mod := fold(module)
	for k := range w.bindings {
		if k.module == mod {
			delete(w.bindings, k)
		}
	}
}
