package dispatch

import (
	"github.com/wippyai/objbridge/handle"
	"go.uber.org/zap"
)

// Class describes a wrapped native type T to the dispatcher.
type Class[T any] struct {
	// Name is the host class name instances are matched against. It prefixes
	// every error category raised for the class.
	Name string

	// New builds the native object. call.Instance is the host object being
	// constructed and call.Args the remaining inputs.
	New func(call *Call) (T, error)

	// Static runs static actions. It returns ErrNotHandled for unknown names.
	// A nil Static knows no static actions.
	Static func(call *Call) error

	// Actions lists the static and custom actions for help output. Built-ins
	// are added from T's capabilities.
	Actions []ActionSpec
}

// ActionSpec documents one action.
type ActionSpec struct {
	Name   string
	Help   string
	Args   []string
	NOut   int
	Static bool
}

type options struct {
	registry *handle.Registry
	host     Host
	logger   *zap.Logger
}

// Option configures an Entry.
type Option func(*options)

// WithRegistry sets the registry backend objects are stored in. The
// default is handle.Default().
func WithRegistry(r *handle.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithHost sets the instance host. The default is ObjectHost{}.
func WithHost(h Host) Option {
	return func(o *options) {
		o.host = h
	}
}

// WithLogger sets the logger used for this entry instead of the package
// logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func builtinSpecs[T any]() []ActionSpec {
	var zero T
	obj := any(zero)
	var specs []ActionSpec
	if _, ok := obj.(Properties); ok {
		specs = append(specs,
			ActionSpec{Name: ActionGet, Args: []string{"name"}, NOut: 1, Help: "read a property"},
			ActionSpec{Name: ActionSet, Args: []string{"name", "value"}, Help: "write a property"},
		)
	}
	_, saver := obj.(Saver)
	_, loader := obj.(Loader)
	_, _, lister := listable(obj)
	if saver || lister {
		specs = append(specs, ActionSpec{Name: ActionSave, NOut: 1, Help: "snapshot all properties"})
	}
	if loader || lister {
		specs = append(specs, ActionSpec{Name: ActionLoad, Args: []string{"snapshot"}, Help: "restore a snapshot"})
	}
	return append(specs, ActionSpec{Name: ActionDelete, Help: "destroy the backend object"})
}

// describe returns the built-in and declared actions of a class.
func describe[T any](c Class[T]) []ActionSpec {
	specs := builtinSpecs[T]()
	for _, a := range c.Actions {
		if !a.Static && Reserved(a.Name) {
			// a custom action shadowing a built-in replaces its help entry
			specs = replaceSpec(specs, a)
			continue
		}
		specs = append(specs, a)
	}
	return specs
}

func replaceSpec(specs []ActionSpec, a ActionSpec) []ActionSpec {
	for i := range specs {
		if specs[i].Name == a.Name {
			specs[i] = a
			return specs
		}
	}
	return append(specs, a)
}
