package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which part of a call the error was raised in
type Phase string

const (
	PhaseEntry     Phase = "entry"     // call shape checks
	PhaseStatic    Phase = "static"    // static action
	PhaseConstruct Phase = "construct" // backend construction
	PhaseAction    Phase = "action"    // instance action
	PhaseDestroy   Phase = "destroy"   // backend release
	PhaseRegistry  Phase = "registry"  // handle registry
	PhaseMarshal   Phase = "marshal"   // host value conversion
	PhaseNative    Phase = "native"    // raised by wrapped type logic
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidHandle       Kind = "invalid_handle"
	KindConstruction        Kind = "construction"
	KindConstructionFailed  Kind = "construction_failed"
	KindMissingAction       Kind = "missing_action"
	KindUnknownAction       Kind = "unknown_action"
	KindUnknownStaticAction Kind = "unknown_static_action"
	KindInvalidArguments    Kind = "invalid_arguments"
	KindActionFailed        Kind = "action_failed"
	KindTooManyOutputs      Kind = "too_many_outputs"
	KindNotString           Kind = "not_string"
	KindUnsupportedClass    Kind = "unsupported_class"
	KindStaticFailed        Kind = "static_failed"
	KindInvalidProperty     Kind = "invalid_property"
	KindTypeMismatch        Kind = "type_mismatch"
)

// Error is the structured error type crossing the dispatch boundary.
// ID is the colon-segmented category callers pattern-match on; Detail is the
// human-readable message.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	ID     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.ID != "" {
		b.WriteString(" (")
		b.WriteString(e.ID)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Message returns the text surfaced to the host. It is never empty.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Cause != nil {
		if m := MessageOf(e.Cause); m != "" {
			return m
		}
	}
	if e.Kind != "" {
		return strings.ReplaceAll(string(e.Kind), "_", " ")
	}
	return "unknown error"
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && e.Phase != t.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// ID sets the category, joining segments with ':'
func (b *Builder) ID(segments ...string) *Builder {
	b.err.ID = JoinID(segments...)
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Raise creates an error from wrapped type logic. The id is kept as the
// native category and nested under the dispatcher's own category.
func Raise(id string, msg string, args ...any) *Error {
	return New(PhaseNative, KindActionFailed).ID(id).Detail(msg, args...).Build()
}

// InvalidArguments creates an arity or argument type error for an action.
func InvalidArguments(action, msg string) *Error {
	return &Error{
		Phase:  PhaseNative,
		Kind:   KindInvalidArguments,
		ID:     JoinID(action, "invalidArguments"),
		Detail: msg,
	}
}

// InvalidProperty creates an unknown property or bad property value error.
func InvalidProperty(class, cause, msg string) *Error {
	return &Error{
		Phase:  PhaseNative,
		Kind:   KindInvalidProperty,
		ID:     JoinID(class, cause),
		Detail: msg,
	}
}

// NotString creates a string conversion error
func NotString(what string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindNotString,
		ID:     "notString",
		Detail: fmt.Sprintf("%s must be a character string", what),
	}
}

// TypeMismatch creates a host value conversion error
func TypeMismatch(want string, got any) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindTypeMismatch,
		ID:     "typeMismatch",
		Detail: fmt.Sprintf("expected %s, got %T", want, got),
		Value:  got,
	}
}

// InvalidHandle creates a handle validation error
func InvalidHandle(detail string) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindInvalidHandle,
		ID:     "invalidObjectHandle",
		Detail: detail,
	}
}

// Construction creates a registry-level construction error
func Construction(cause error, detail string) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindConstruction,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, id string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  kind,
		ID:    id,
		Cause: cause,
	}
}

// IDOf returns the first non-empty category in err's chain, or "" if
// there is none.
func IDOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.ID != "" {
			return e.ID
		}
		err = stderrors.Unwrap(err)
	}
	return ""
}

// KindOf returns the kind carried by err, or "" if it has none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the message of err without the phase/kind decoration
// that Error() adds.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}

// As is errors.As, re-exported so callers importing this package do not
// need the standard library errors under another name.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// HasKind reports whether any error in err's chain has the given kind.
func HasKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}
