package dispatch

import (
	"fmt"

	"github.com/wippyai/objbridge/value"
)

// Host answers the instance questions the dispatcher cannot answer itself:
// whether a cell is an instance of a class, and where that instance keeps
// its backend slot.
type Host interface {
	IsInstance(c value.Cell, class string) bool
	// Backend returns the instance's slot. ok is false when the instance has
	// no slot at all.
	Backend(c value.Cell) (slot value.Cell, ok bool)
	SetBackend(c value.Cell, slot value.Cell) error
}

// ObjectHost is the Host for *value.Object instances.
type ObjectHost struct {
	// Property names the slot. Empty means value.BackendProperty.
	Property string
}

func (h ObjectHost) property() string {
	if h.Property == "" {
		return value.BackendProperty
	}
	return h.Property
}

func (h ObjectHost) IsInstance(c value.Cell, class string) bool {
	o, ok := c.(*value.Object)
	return ok && o.Class() == class
}

func (h ObjectHost) Backend(c value.Cell) (value.Cell, bool) {
	o, ok := c.(*value.Object)
	if !ok {
		return nil, false
	}
	return o.Property(h.property())
}

func (h ObjectHost) SetBackend(c value.Cell, slot value.Cell) error {
	o, ok := c.(*value.Object)
	if !ok {
		return fmt.Errorf("%T is not a host object", c)
	}
	return o.SetProperty(h.property(), slot)
}
