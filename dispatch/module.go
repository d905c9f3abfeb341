package dispatch

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

// Function is the type-erased view of an Entry.
type Function interface {
	Name() string
	Actions() []ActionSpec
	Invoke(nargout int, inputs []value.Cell) ([]value.Cell, error)
}

var _ Function = (*Entry[any])(nil)

// Module routes calls to entries by class name, for hosts that name the
// class explicitly.
type Module struct {
	fns *orderedmap.OrderedMap[string, Function]
	mu  sync.RWMutex
}

// NewModule creates a module holding fns.
func NewModule(fns ...Function) (*Module, error) {
	m := &Module{fns: orderedmap.New[string, Function]()}
	for _, fn := range fns {
		if err := m.Register(fn); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register adds fn. Class names must be unique.
func (m *Module) Register(fn Function) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fns.Get(fn.Name()); ok {
		return fmt.Errorf("dispatch: class %s already registered", fn.Name())
	}
	m.fns.Set(fn.Name(), fn)
	return nil
}

// Lookup returns the entry for class.
func (m *Module) Lookup(class string) (Function, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fns.Get(class)
}

// Names returns the registered class names in registration order.
func (m *Module) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, m.fns.Len())
	for pair := m.fns.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Invoke calls the entry registered for class.
func (m *Module) Invoke(class string, nargout int, inputs []value.Cell) ([]value.Cell, error) {
	fn, ok := m.Lookup(class)
	if !ok {
		return nil, errors.New(errors.PhaseEntry, errors.KindUnsupportedClass).
			ID(errors.NormalizeID(class), "unsupportedClass").
			Detail("Unknown class: %s", class).
			Build()
	}
	return fn.Invoke(nargout, inputs)
}
