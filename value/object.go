package value

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BackendProperty is the conventional name of the per-instance slot that
// holds the native object's handle.
const BackendProperty = "backend"

// Object is a host class instance: a class name and a fixed set of
// declared properties.
type Object struct {
	props *orderedmap.OrderedMap[string, Cell]
	class string
}

// NewObject creates an instance of class with the given properties, all
// initially empty.
func NewObject(class string, props ...string) *Object {
	o := &Object{
		class: class,
		props: orderedmap.New[string, Cell](),
	}
	for _, p := range props {
		o.props.Set(p, Empty{})
	}
	return o
}

// NewInstance creates an instance of class with an empty backend property
// followed by any extra properties.
func NewInstance(class string, extra ...string) *Object {
	return NewObject(class, append([]string{BackendProperty}, extra...)...)
}

func (*Object) Kind() Kind { return KindObject }

// Class returns the instance's class name.
func (o *Object) Class() string {
	return o.class
}

// HasProperty reports whether name is declared.
func (o *Object) HasProperty(name string) bool {
	_, ok := o.props.Get(name)
	return ok
}

// Property returns a declared property's value.
func (o *Object) Property(name string) (Cell, bool) {
	return o.props.Get(name)
}

// SetProperty writes a declared property. Undeclared names are rejected.
func (o *Object) SetProperty(name string, c Cell) error {
	if !o.HasProperty(name) {
		return fmt.Errorf("class %s has no property %q", o.class, name)
	}
	if c == nil {
		c = Empty{}
	}
	o.props.Set(name, c)
	return nil
}

// PropertyNames returns the declared property names in order.
func (o *Object) PropertyNames() []string {
	names := make([]string, 0, o.props.Len())
	for pair := o.props.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Clone returns a copy of o with the same property values. The copy is a
// distinct host object, as after a value assignment on the host.
func (o *Object) Clone() *Object {
	c := &Object{
		class: o.class,
		props: orderedmap.New[string, Cell](),
	}
	for pair := o.props.Oldest(); pair != nil; pair = pair.Next() {
		c.props.Set(pair.Key, pair.Value)
	}
	return c
}
