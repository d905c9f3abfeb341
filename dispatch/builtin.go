package dispatch

import (
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

// builtin runs get, set, save and load when obj has the capability for
// them. handled is false when the name should fall through to the custom
// handler.
func builtin(obj any, call *Call) (handled bool, err error) {
	switch call.Action {
	case ActionGet:
		p, ok := obj.(Properties)
		if !ok {
			return false, nil
		}
		return true, get(p, call)
	case ActionSet:
		p, ok := obj.(Properties)
		if !ok {
			return false, nil
		}
		return true, set(p, call)
	case ActionSave:
		if s, ok := obj.(Saver); ok {
			return true, save(s.Save, call)
		}
		if p, l, ok := listable(obj); ok {
			return true, save(func() (value.Cell, error) { return snapshot(p, l) }, call)
		}
	case ActionLoad:
		if ld, ok := obj.(Loader); ok {
			return true, load(ld.Load, call)
		}
		if p, _, ok := listable(obj); ok {
			return true, load(func(c value.Cell) error { return restore(p, c) }, call)
		}
	}
	return false, nil
}

func listable(obj any) (Properties, PropertyLister, bool) {
	p, ok := obj.(Properties)
	if !ok {
		return nil, nil, false
	}
	l, ok := obj.(PropertyLister)
	if !ok {
		return nil, nil, false
	}
	return p, l, true
}

func get(p Properties, call *Call) error {
	if err := call.Arity(1, 1, "Get action takes 3 input arguments and returns one."); err != nil {
		return err
	}
	name, err := value.ReadString(call.Args[0])
	if err != nil {
		return errors.InvalidProperty(ActionGet, "invalidPropName", "Get action's third argument must be a name string.")
	}
	v, err := p.Get(name)
	if err != nil {
		return err
	}
	return call.Return(v)
}

func set(p Properties, call *Call) error {
	if err := call.Arity(2, 0, "Set action takes 4 input arguments and returns none."); err != nil {
		return err
	}
	name, err := value.ReadString(call.Args[0])
	if err != nil {
		return errors.InvalidProperty(ActionSet, "invalidPropName", "Set action's third argument must be a name string.")
	}
	return p.Set(name, call.Args[1])
}

func save(fn func() (value.Cell, error), call *Call) error {
	if len(call.Args) != 0 || call.NOut > 1 {
		return errors.InvalidArguments(ActionSave, "Save action takes 2 input arguments and returns one.")
	}
	v, err := fn()
	if err != nil {
		return err
	}
	return call.Return(v)
}

func load(fn func(value.Cell) error, call *Call) error {
	if err := call.Arity(1, 0, "Load action takes 3 input arguments and returns none."); err != nil {
		return err
	}
	return fn(call.Args[0])
}

func snapshot(p Properties, l PropertyLister) (value.Cell, error) {
	s := value.NewStruct()
	for _, name := range l.PropertyNames() {
		v, err := p.Get(name)
		if err != nil {
			return nil, err
		}
		s.Set(name, v)
	}
	return s, nil
}

func restore(p Properties, c value.Cell) error {
	s, ok := c.(*value.Struct)
	if !ok {
		return errors.InvalidArguments(ActionLoad, "Load action's third argument must be a struct produced by save.")
	}
	var err error
	s.Each(func(name string, v value.Cell) bool {
		err = p.Set(name, v)
		return err == nil
	})
	return err
}
