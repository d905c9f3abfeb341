package handle

import "github.com/wippyai/objbridge/errors"

// Allocate constructs a T through ctor and registers it under T's tag.
func Allocate[T any](r *Registry, ctor func() (T, error)) (Token, error) {
	return r.Allocate(TagOf[T](), func() (any, error) {
		v, err := ctor()
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Resolve returns the T stored under tok.
func Resolve[T any](r *Registry, tok Token) (T, error) {
	v, err := r.Resolve(tok, TagOf[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v)
}

// Use calls fn with the T stored under tok while the entry is marked in use.
func Use[T any](r *Registry, tok Token, fn func(T) error) error {
	return r.Use(tok, TagOf[T](), func(v any) error {
		t, err := as[T](v)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

// Release destroys the T stored under tok.
func Release[T any](r *Registry, tok Token) error {
	return r.Release(tok, TagOf[T]())
}

// Detach removes the T stored under tok without dropping it.
func Detach[T any](r *Registry, tok Token) (T, error) {
	v, err := r.Detach(tok, TagOf[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v)
}

// as converts a stored value. A value that is not a T is reported like a
// foreign handle.
func as[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, errors.InvalidHandle("Handle is either invalid or not wrapping the intended object.")
	}
	return t, nil
}
