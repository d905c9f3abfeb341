package value

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the shape of a host cell.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindDouble
	KindVector
	KindUint64
	KindBool
	KindStruct
	KindObject
)

var kindNames = [...]string{
	KindEmpty:  "empty",
	KindString: "string",
	KindDouble: "double",
	KindVector: "vector",
	KindUint64: "uint64",
	KindBool:   "bool",
	KindStruct: "struct",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Cell is one value of the host's array representation.
type Cell interface {
	Kind() Kind
}

// Empty is the empty array.
type Empty struct{}

// String is a character row.
type String string

// Double is a real double scalar.
type Double float64

// Vector is a real double vector.
type Vector []float64

// Uint64 is a real uint64 scalar. Handle tokens travel as Uint64.
type Uint64 uint64

// Bool is a logical scalar.
type Bool bool

func (Empty) Kind() Kind  { return KindEmpty }
func (String) Kind() Kind { return KindString }
func (Double) Kind() Kind { return KindDouble }
func (Vector) Kind() Kind { return KindVector }
func (Uint64) Kind() Kind { return KindUint64 }
func (Bool) Kind() Kind   { return KindBool }

// Struct is a scalar struct with ordered named fields.
type Struct struct {
	fields *orderedmap.OrderedMap[string, Cell]
}

// NewStruct creates an empty struct.
func NewStruct() *Struct {
	return &Struct{fields: orderedmap.New[string, Cell]()}
}

func (*Struct) Kind() Kind { return KindStruct }

// Set adds or replaces a field. Fields keep their first insertion order.
func (s *Struct) Set(name string, c Cell) *Struct {
	if c == nil {
		c = Empty{}
	}
	s.fields.Set(name, c)
	return s
}

// Field returns the named field.
func (s *Struct) Field(name string) (Cell, bool) {
	return s.fields.Get(name)
}

// Len returns the number of fields.
func (s *Struct) Len() int {
	return s.fields.Len()
}

// Names returns field names in order.
func (s *Struct) Names() []string {
	names := make([]string, 0, s.fields.Len())
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Each calls fn for every field in order until fn returns false.
func (s *Struct) Each(fn func(name string, c Cell) bool) {
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// IsEmpty reports whether c is an empty array. A nil cell counts as empty.
func IsEmpty(c Cell) bool {
	switch v := c.(type) {
	case nil:
		return true
	case Empty:
		return true
	case Vector:
		return len(v) == 0
	}
	return false
}

// Equal reports whether two cells hold the same value. Objects compare by
// identity.
func Equal(a, b Cell) bool {
	if IsEmpty(a) || IsEmpty(b) {
		return IsEmpty(a) && IsEmpty(b)
	}
	switch av := a.(type) {
	case Vector:
		bv, ok := b.(Vector)
		if !ok {
			return false
		}
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case *Struct:
		bv, ok := b.(*Struct)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		equal := true
		av.Each(func(name string, c Cell) bool {
			other, ok := bv.Field(name)
			equal = ok && Equal(c, other)
			return equal
		})
		return equal
	case *Object:
		bv, ok := b.(*Object)
		return ok && av == bv
	}
	return a == b
}
