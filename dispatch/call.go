package dispatch

import (
	"fmt"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

// CallKind is the path a call takes through the dispatcher.
type CallKind uint8

const (
	CallStatic CallKind = iota
	CallConstruct
	CallAction
	CallDestroy
)

func (k CallKind) String() string {
	switch k {
	case CallStatic:
		return "static"
	case CallConstruct:
		return "construct"
	case CallAction:
		return "action"
	case CallDestroy:
		return "destroy"
	}
	return fmt.Sprintf("CallKind(%d)", k)
}

// Call is the envelope handed to native code for one invocation.
type Call struct {
	// Instance is the host object the call concerns. It is nil for static
	// calls.
	Instance value.Cell
	Action   string
	Args     []value.Cell
	NOut     int
	Kind     CallKind

	out []value.Cell
}

// Arg returns the i-th argument, or Empty if there is none.
func (c *Call) Arg(i int) value.Cell {
	if i < 0 || i >= len(c.Args) {
		return value.Empty{}
	}
	return c.Args[i]
}

// Return appends outputs. The host always accepts one output even when it
// asked for none, so at most max(NOut, 1) values are allowed.
func (c *Call) Return(cells ...value.Cell) error {
	limit := max(c.NOut, 1)
	if len(c.out)+len(cells) > limit {
		return errors.New(errors.PhaseNative, errors.KindTooManyOutputs).
			ID(c.Action, "tooManyOutputArguments").
			Detail("%s produces more than %d output(s)", c.Action, limit).
			Build()
	}
	for _, v := range cells {
		if v == nil {
			v = value.Empty{}
		}
		c.out = append(c.out, v)
	}
	return nil
}

// Outputs returns the values returned so far.
func (c *Call) Outputs() []value.Cell {
	return c.out
}

// Arity checks the argument and output counts of an action. A negative
// count is not checked.
func (c *Call) Arity(args, nout int, msg string) error {
	if (args >= 0 && len(c.Args) != args) || (nout >= 0 && c.NOut != nout) {
		return errors.InvalidArguments(c.Action, msg)
	}
	return nil
}
