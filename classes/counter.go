package classes

import (
	"github.com/wippyai/objbridge/dispatch"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

// CounterName is the host class name of Counter.
const CounterName = "Counter"

// Counter is a resettable counter. next returns the value before
// incrementing it.
type Counter struct {
	value float64
}

// NewCounter creates a counter starting at start.
func NewCounter(start float64) *Counter {
	return &Counter{value: start}
}

// CounterClass describes Counter to the dispatcher. The constructor takes an
// optional numeric start value.
func CounterClass() dispatch.Class[*Counter] {
	return dispatch.Class[*Counter]{
		Name: CounterName,
		New: func(call *dispatch.Call) (*Counter, error) {
			if len(call.Args) > 1 {
				return nil, errors.InvalidArguments("new", "Counter takes at most one start value.")
			}
			if len(call.Args) == 0 {
				return NewCounter(0), nil
			}
			n, err := value.ReadInt(call.Args[0])
			if err != nil {
				return nil, errors.InvalidArguments("new", "Start value must be an integer.")
			}
			return NewCounter(float64(n)), nil
		},
		Actions: []dispatch.ActionSpec{
			{Name: "next", NOut: 1, Help: "return the count, then increment it"},
			{Name: "reset", Help: "set the count back to zero"},
		},
	}
}

func (c *Counter) PropertyNames() []string {
	return []string{"value"}
}

func (c *Counter) Get(name string) (value.Cell, error) {
	if name != "value" {
		return nil, unknownProperty(CounterName, name)
	}
	return value.MakeScalar(c.value), nil
}

func (c *Counter) Set(name string, v value.Cell) error {
	if name != "value" {
		return unknownProperty(CounterName, name)
	}
	n, err := value.ReadInt(v)
	if err != nil {
		return errors.InvalidProperty(CounterName, "invalidPropertyValue", "value must be a scalar integer.")
	}
	c.value = float64(n)
	return nil
}

func (c *Counter) Action(call *dispatch.Call) error {
	switch call.Action {
	case "next":
		if err := call.Arity(0, -1, "Next action takes no additional input argument."); err != nil {
			return err
		}
		if err := call.Return(value.MakeScalar(c.value)); err != nil {
			return err
		}
		c.value++
	case "reset":
		if err := call.Arity(0, 0, "Reset action takes no additional input argument and returns none."); err != nil {
			return err
		}
		c.value = 0
	default:
		return dispatch.ErrNotHandled
	}
	return nil
}

func unknownProperty(class, name string) error {
	return errors.InvalidProperty(class, "invalidPropertyName", "Unknown property name:"+name)
}
