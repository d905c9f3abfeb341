package handle

import (
	"fmt"
	"reflect"
)

// Token is an opaque reference to a registry entry, safe to hand to a
// foreign caller as a 64-bit integer.
// The low 32 bits hold the slot index plus one, the high 32 bits the slot
// generation. Token 0 is never issued.
type Token uint64

func makeToken(index uint32, gen uint32) Token {
	return Token(uint64(gen)<<32 | uint64(index+1))
}

func (t Token) index() (uint32, bool) {
	lo := uint32(t)
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

func (t Token) generation() uint32 {
	return uint32(t >> 32)
}

// String formats the token for logs.
func (t Token) String() string {
	return fmt.Sprintf("0x%016x", uint64(t))
}

// Tag identifies the wrapped type an entry was created for.
// Two tags are equal only if they name the identical Go type.
type Tag struct {
	typ reflect.Type
}

// TagOf returns the tag for T.
func TagOf[T any]() Tag {
	return Tag{typ: reflect.TypeFor[T]()}
}

// String returns the type name for diagnostics.
func (t Tag) String() string {
	if t.typ == nil {
		return "<nil>"
	}
	return t.typ.String()
}

// IsZero reports whether the tag names no type.
func (t Tag) IsZero() bool {
	return t.typ == nil
}

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventReleased
	EventDetached
)

func (e EventType) String() string {
	switch e {
	case EventAllocated:
		return "allocated"
	case EventReleased:
		return "released"
	case EventDetached:
		return "detached"
	}
	return "unknown"
}

// Event represents a registry lifecycle event.
type Event struct {
	Value any
	Tag   Tag
	Token Token
	Type  EventType
}

// Observer receives notifications about registry lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Dropper is optionally implemented by wrapped values that need cleanup when
// their entry is released.
type Dropper interface {
	Drop()
}

// Pinner keeps the hosting module loaded while objects are outstanding.
// Pin is called after every successful allocation, Unpin after every release.
type Pinner interface {
	Pin()
	Unpin()
}
