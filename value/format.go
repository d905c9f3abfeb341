package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Format renders a cell the way a host console would echo it.
func Format(c Cell) string {
	switch v := c.(type) {
	case nil, Empty:
		return "[]"
	case String:
		return strconv.Quote(string(v))
	case Double:
		return formatFloat(float64(v))
	case Vector:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = formatFloat(f)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Uint64:
		return fmt.Sprintf("uint64(%d)", uint64(v))
	case Bool:
		return strconv.FormatBool(bool(v))
	case *Struct:
		parts := make([]string, 0, v.Len())
		v.Each(func(name string, c Cell) bool {
			parts = append(parts, name+": "+Format(c))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	case *Object:
		parts := make([]string, 0)
		for _, name := range v.PropertyNames() {
			p, _ := v.Property(name)
			parts = append(parts, name+"="+Format(p))
		}
		return "<" + v.Class() + " " + strings.Join(parts, " ") + ">"
	}
	return fmt.Sprintf("%v", c)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Parse reads a cell from console text:
//
//	""  []          empty
//	'abc' "abc"     string
//	1.5             double
//	[1 2 3] [1,2]   vector
//	true false      bool
//	u64:42          uint64
//
// Anything else is taken as an unquoted string.
func Parse(text string) Cell {
	s := strings.TrimSpace(text)
	if s == "" {
		return Empty{}
	}
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return String(s[1 : len(s)-1])
		}
	}
	if s[0] == '[' && s[len(s)-1] == ']' {
		fields := strings.FieldsFunc(s[1:len(s)-1], func(r rune) bool {
			return r == ' ' || r == ',' || r == '\t' || r == ';'
		})
		fs := make([]float64, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return String(s)
			}
			fs = append(fs, n)
		}
		return MakeVector(fs)
	}
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if rest, ok := strings.CutPrefix(s, "u64:"); ok {
		if u, err := strconv.ParseUint(rest, 0, 64); err == nil {
			return Uint64(u)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Double(f)
	}
	return String(s)
}

// FromGo converts a decoded YAML or JSON value to a cell. Maps become
// structs with sorted field names, number lists become vectors.
func FromGo(v any) (Cell, error) {
	switch x := v.(type) {
	case nil:
		return Empty{}, nil
	case Cell:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Double(float64(x)), nil
	case int64:
		return Double(float64(x)), nil
	case uint64:
		return Uint64(x), nil
	case float64:
		return Double(x), nil
	case float32:
		return Double(float64(x)), nil
	case []float64:
		return MakeVector(x), nil
	case []any:
		fs := make([]float64, 0, len(x))
		for i, e := range x {
			c, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			d, ok := c.(Double)
			if !ok {
				return nil, fmt.Errorf("list element %d: only numeric lists are supported, got %s", i, c.Kind())
			}
			fs = append(fs, float64(d))
		}
		return MakeVector(fs), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := NewStruct()
		for _, k := range keys {
			c, err := FromGo(x[k])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			s.Set(k, c)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}
