package value

import (
	"math"

	"github.com/wippyai/objbridge/errors"
)

// ReadString converts a string cell to text.
func ReadString(c Cell) (string, error) {
	if s, ok := c.(String); ok {
		return string(s), nil
	}
	return "", errors.NotString("value")
}

// IsString reports whether c is a string cell.
func IsString(c Cell) bool {
	_, ok := c.(String)
	return ok
}

// ReadHandleToken converts a real uint64 scalar cell to a handle token.
func ReadHandleToken(c Cell) (uint64, error) {
	if u, ok := c.(Uint64); ok {
		return uint64(u), nil
	}
	return 0, errors.InvalidHandle("Input must be a real uint64 scalar.")
}

// MakeHandleCell encodes a handle token as a cell.
func MakeHandleCell(tok uint64) Cell {
	return Uint64(tok)
}

// MakeScalar creates a double scalar cell.
func MakeScalar(f float64) Cell {
	return Double(f)
}

// MakeVector creates a double vector cell. The slice is copied.
func MakeVector(fs []float64) Cell {
	if len(fs) == 0 {
		return Empty{}
	}
	return Vector(append([]float64(nil), fs...))
}

// ReadScalar converts a numeric or logical scalar to float64.
func ReadScalar(c Cell) (float64, error) {
	switch v := c.(type) {
	case Double:
		return float64(v), nil
	case Uint64:
		return float64(v), nil
	case Bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case Vector:
		if len(v) == 1 {
			return v[0], nil
		}
	}
	return 0, errors.TypeMismatch("numeric scalar", c)
}

// ReadNumber converts a numeric scalar to float64. Logicals are rejected.
func ReadNumber(c Cell) (float64, error) {
	if _, ok := c.(Bool); ok {
		return 0, errors.TypeMismatch("numeric scalar", c)
	}
	return ReadScalar(c)
}

// ReadInt converts a numeric scalar holding an integral value to int.
// Logicals are rejected.
func ReadInt(c Cell) (int, error) {
	f, err := ReadNumber(c)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			ID("notInteger").
			Detail("value %v is not an integer", f).
			Value(f).
			Build()
	}
	return int(f), nil
}

// ReadFloats converts an empty array, double scalar or double vector to a
// slice.
func ReadFloats(c Cell) ([]float64, error) {
	switch v := c.(type) {
	case Empty:
		return []float64{}, nil
	case Double:
		return []float64{float64(v)}, nil
	case Vector:
		return append([]float64(nil), v...), nil
	}
	return nil, errors.TypeMismatch("real double vector", c)
}
