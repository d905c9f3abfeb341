package dispatch

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/handle"
	"github.com/wippyai/objbridge/value"
)

// Entry is the single entry point of one wrapped class. Every host call for
// the class goes through Invoke.
type Entry[T any] struct {
	class    Class[T]
	registry *handle.Registry
	host     Host
	logger   *zap.Logger
	specs    []ActionSpec
}

// New creates the entry point for class.
func New[T any](class Class[T], opts ...Option) (*Entry[T], error) {
	if class.Name == "" {
		return nil, fmt.Errorf("dispatch: class name is required")
	}
	if class.New == nil {
		return nil, fmt.Errorf("dispatch: class %s has no constructor", class.Name)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = handle.Default()
	}
	if o.host == nil {
		o.host = ObjectHost{}
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	return &Entry[T]{
		class:    class,
		registry: o.registry,
		host:     o.host,
		logger:   o.logger.With(zap.String("class", class.Name)),
		specs:    describe(class),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](class Class[T], opts ...Option) *Entry[T] {
	e, err := New(class, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the class name.
func (e *Entry[T]) Name() string {
	return e.class.Name
}

// Actions returns the actions the class understands.
func (e *Entry[T]) Actions() []ActionSpec {
	return e.specs
}

// Registry returns the registry backend objects live in.
func (e *Entry[T]) Registry() *handle.Registry {
	return e.registry
}

// Invoke routes one host call. nargout is the number of outputs the host
// expects. Every returned error is an *errors.Error with a normalized ID
// prefixed by the class name.
func (e *Entry[T]) Invoke(nargout int, inputs []value.Cell) ([]value.Cell, error) {
	out, err := e.invoke(nargout, inputs)
	if err != nil {
		var de *errors.Error
		if !errors.As(err, &de) {
			de = e.fail(errors.PhaseEntry, errors.KindActionFailed, err, "mex", "failedAction")
		}
		de.ID = errors.NormalizeID(de.ID)
		e.logger.Debug("call failed", zap.String("id", de.ID), zap.String("message", de.Message()))
		return nil, de
	}
	return out, nil
}

func (e *Entry[T]) invoke(nargout int, inputs []value.Cell) ([]value.Cell, error) {
	if len(inputs) < 1 {
		return nil, e.reject(errors.PhaseEntry, errors.KindInvalidInput,
			"Needs at least one input argument.", "mex", "invalidInput")
	}

	inst := inputs[0]
	if !e.host.IsInstance(inst, e.class.Name) {
		return e.static(nargout, inputs)
	}

	slot, ok := e.host.Backend(inst)
	if !ok {
		return nil, e.reject(errors.PhaseEntry, errors.KindUnsupportedClass,
			"Host class must have a backend property.", "unsupportedClass")
	}

	if value.IsEmpty(slot) {
		return e.construct(nargout, inst, inputs[1:])
	}

	if len(inputs) < 2 || !value.IsString(inputs[1]) {
		return nil, e.reject(errors.PhaseEntry, errors.KindMissingAction,
			"Second argument (action) is not a string.", "missingAction")
	}
	action, _ := value.ReadString(inputs[1])

	raw, err := value.ReadHandleToken(slot)
	if err != nil {
		return nil, e.invalidHandle(err)
	}
	tok := handle.Token(raw)

	if action == ActionDelete {
		return nil, e.destroy(inst, tok)
	}
	return e.action(&Call{
		Kind:     CallAction,
		Instance: inst,
		Action:   action,
		Args:     inputs[2:],
		NOut:     nargout,
	}, tok)
}

func (e *Entry[T]) static(nargout int, inputs []value.Cell) ([]value.Cell, error) {
	if !value.IsString(inputs[0]) {
		return nil, e.reject(errors.PhaseStatic, errors.KindUnknownStaticAction,
			"Static action name not given.", "mex", "static", "functionUndefined")
	}
	name, _ := value.ReadString(inputs[0])
	call := &Call{
		Kind:   CallStatic,
		Action: name,
		Args:   inputs[1:],
		NOut:   nargout,
	}

	e.logger.Debug("static action", zap.String("action", name))

	err := ErrNotHandled
	if e.class.Static != nil {
		err = guard(func() error { return e.class.Static(call) })
	}
	switch {
	case err == nil:
		return call.Outputs(), nil
	case stderrors.Is(err, ErrNotHandled):
		return nil, e.reject(errors.PhaseStatic, errors.KindUnknownStaticAction,
			"Unknown static action: "+name, "mex", "static", "unknownFunction")
	}
	return nil, e.nested(errors.PhaseStatic, errors.KindStaticFailed, err, "mex", "static", "executionFailed")
}

func (e *Entry[T]) construct(nargout int, inst value.Cell, args []value.Cell) ([]value.Cell, error) {
	if nargout > 1 {
		return nil, e.reject(errors.PhaseConstruct, errors.KindTooManyOutputs,
			"Only one argument is returned for object construction.", "tooManyOutputArguments")
	}

	call := &Call{
		Kind:     CallConstruct,
		Instance: inst,
		Args:     args,
		NOut:     nargout,
	}
	tok, err := handle.Allocate(e.registry, func() (T, error) {
		return e.class.New(call)
	})
	if err != nil {
		return nil, e.nested(errors.PhaseConstruct, errors.KindConstructionFailed, err, "mex", "constructorFail")
	}

	if err := e.host.SetBackend(inst, value.MakeHandleCell(uint64(tok))); err != nil {
		// the host refused the token, so nothing can ever release it
		_ = handle.Release[T](e.registry, tok)
		return nil, e.fail(errors.PhaseConstruct, errors.KindUnsupportedClass, err, "unsupportedClass")
	}

	e.logger.Debug("backend constructed", zap.Stringer("token", tok))

	if nargout == 1 {
		return []value.Cell{inst}, nil
	}
	return nil, nil
}

func (e *Entry[T]) destroy(inst value.Cell, tok handle.Token) error {
	if err := handle.Release[T](e.registry, tok); err != nil {
		return e.invalidHandle(err)
	}
	if err := e.host.SetBackend(inst, value.Empty{}); err != nil {
		return e.fail(errors.PhaseDestroy, errors.KindUnsupportedClass, err, "unsupportedClass")
	}
	e.logger.Debug("backend destroyed", zap.Stringer("token", tok))
	return nil
}

func (e *Entry[T]) action(call *Call, tok handle.Token) ([]value.Cell, error) {
	e.logger.Debug("action", zap.String("action", call.Action), zap.Stringer("token", tok))

	ran, handled := false, true
	err := handle.Use(e.registry, tok, func(obj T) error {
		ran = true
		return guard(func() error {
			ok, err := builtin(obj, call)
			if ok || err != nil {
				return err
			}
			if h, ok := any(obj).(ActionHandler); ok {
				err = h.Action(call)
				if !stderrors.Is(err, ErrNotHandled) {
					return err
				}
			}
			handled = false
			return nil
		})
	})

	switch {
	case err != nil && !ran:
		return nil, e.invalidHandle(err)
	case err != nil:
		return nil, e.nested(errors.PhaseAction, errors.KindActionFailed, err, "mex", "failedAction")
	case !handled:
		return nil, e.reject(errors.PhaseAction, errors.KindUnknownAction,
			"Unknown action: "+call.Action, "unknownAction")
	}
	return call.Outputs(), nil
}

// guard runs native code, turning a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// reject creates a dispatcher-level error under the class name.
func (e *Entry[T]) reject(phase errors.Phase, kind errors.Kind, msg string, id ...string) *errors.Error {
	return errors.New(phase, kind).
		ID(append([]string{e.class.Name}, id...)...).
		Detail("%s", msg).
		Build()
}

// fail wraps a plumbing error under the class name.
func (e *Entry[T]) fail(phase errors.Phase, kind errors.Kind, cause error, id ...string) *errors.Error {
	return errors.New(phase, kind).
		ID(append([]string{e.class.Name}, id...)...).
		Cause(cause).
		Detail("%s", errors.MessageOf(cause)).
		Build()
}

// nested wraps a native failure. A category carried by the native error is
// kept under <Class>:<prefix> in place of the fallback.
func (e *Entry[T]) nested(phase errors.Phase, kind errors.Kind, cause error, segments ...string) *errors.Error {
	prefix := segments[:len(segments)-1]
	id := errors.IDOf(cause)
	if id == "" {
		id = segments[len(segments)-1]
	}
	return errors.New(phase, kind).
		ID(append(append([]string{e.class.Name}, prefix...), id)...).
		Cause(cause).
		Detail("%s", nativeMessage(cause)).
		Build()
}

func (e *Entry[T]) invalidHandle(cause error) *errors.Error {
	return errors.New(errors.PhaseAction, errors.KindInvalidHandle).
		ID(e.class.Name, "mex", "invalidObjectHandle").
		Cause(cause).
		Detail("%s", errors.MessageOf(cause)).
		Build()
}

// nativeMessage returns the message of the innermost error the registry
// wrapped around a constructor failure.
func nativeMessage(err error) string {
	var re *errors.Error
	if errors.As(err, &re) && re.Kind == errors.KindConstruction && re.Cause != nil {
		return errors.MessageOf(re.Cause)
	}
	return errors.MessageOf(err)
}
