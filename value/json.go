package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// wireCell is the JSON form of a cell:
//
//	{"type":"double","value":1.5}
//	{"type":"uint64","value":"18446744073709551615"}
//	{"type":"struct","fields":[{"name":"A","value":{...}}]}
//	{"type":"object","class":"Counter","fields":[{"name":"backend","value":{...}}]}
type wireCell struct {
	Type   string          `json:"type"`
	Value  json.RawMessage `json:"value,omitempty"`
	Class  string          `json:"class,omitempty"`
	Fields []wireField     `json:"fields,omitempty"`
}

type wireField struct {
	Name  string   `json:"name"`
	Value wireCell `json:"value"`
}

// Wire wraps a cell for JSON encoding.
type Wire struct {
	Cell Cell
}

// MarshalJSON implements json.Marshaler.
func (w Wire) MarshalJSON() ([]byte, error) {
	wc, err := encodeCell(w.Cell)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *Wire) UnmarshalJSON(data []byte) error {
	var wc wireCell
	if err := json.Unmarshal(data, &wc); err != nil {
		return err
	}
	c, err := decodeCell(wc)
	if err != nil {
		return err
	}
	w.Cell = c
	return nil
}

// Wires wraps cells for JSON encoding.
func Wires(cells []Cell) []Wire {
	out := make([]Wire, len(cells))
	for i, c := range cells {
		out[i] = Wire{Cell: c}
	}
	return out
}

// Cells unwraps decoded cells.
func Cells(ws []Wire) []Cell {
	out := make([]Cell, len(ws))
	for i, w := range ws {
		out[i] = w.Cell
	}
	return out
}

func encodeFloat(f float64) json.RawMessage {
	switch {
	case math.IsNaN(f):
		return json.RawMessage(`"NaN"`)
	case math.IsInf(f, 1):
		return json.RawMessage(`"Inf"`)
	case math.IsInf(f, -1):
		return json.RawMessage(`"-Inf"`)
	}
	return json.RawMessage(strconv.FormatFloat(f, 'g', -1, 64))
}

func decodeFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Inf":
			return math.Inf(1), nil
		case "-Inf":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("invalid number %q", s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

func encodeCell(c Cell) (wireCell, error) {
	if c == nil {
		c = Empty{}
	}
	wc := wireCell{Type: c.Kind().String()}
	switch v := c.(type) {
	case Empty:
	case String:
		raw, err := json.Marshal(string(v))
		if err != nil {
			return wc, err
		}
		wc.Value = raw
	case Double:
		wc.Value = encodeFloat(float64(v))
	case Vector:
		parts := make([]json.RawMessage, len(v))
		for i, f := range v {
			parts[i] = encodeFloat(f)
		}
		raw, err := json.Marshal(parts)
		if err != nil {
			return wc, err
		}
		wc.Value = raw
	case Uint64:
		wc.Value = json.RawMessage(strconv.Quote(strconv.FormatUint(uint64(v), 10)))
	case Bool:
		wc.Value = json.RawMessage(strconv.FormatBool(bool(v)))
	case *Struct:
		fields, err := encodeFields(v.Names(), v.Field)
		if err != nil {
			return wc, err
		}
		wc.Fields = fields
	case *Object:
		wc.Class = v.Class()
		fields, err := encodeFields(v.PropertyNames(), v.Property)
		if err != nil {
			return wc, err
		}
		wc.Fields = fields
	default:
		return wc, fmt.Errorf("cannot encode cell of type %T", c)
	}
	return wc, nil
}

func encodeFields(names []string, get func(string) (Cell, bool)) ([]wireField, error) {
	fields := make([]wireField, 0, len(names))
	for _, name := range names {
		c, _ := get(name)
		wc, err := encodeCell(c)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, wireField{Name: name, Value: wc})
	}
	return fields, nil
}

func decodeCell(wc wireCell) (Cell, error) {
	switch wc.Type {
	case "", "empty":
		return Empty{}, nil
	case "string":
		var s string
		if err := json.Unmarshal(wc.Value, &s); err != nil {
			return nil, fmt.Errorf("string cell: %w", err)
		}
		return String(s), nil
	case "double":
		f, err := decodeFloat(wc.Value)
		if err != nil {
			return nil, fmt.Errorf("double cell: %w", err)
		}
		return Double(f), nil
	case "vector":
		var parts []json.RawMessage
		if err := json.Unmarshal(wc.Value, &parts); err != nil {
			return nil, fmt.Errorf("vector cell: %w", err)
		}
		fs := make([]float64, len(parts))
		for i, p := range parts {
			f, err := decodeFloat(p)
			if err != nil {
				return nil, fmt.Errorf("vector cell element %d: %w", i, err)
			}
			fs[i] = f
		}
		return MakeVector(fs), nil
	case "uint64":
		var s string
		if err := json.Unmarshal(wc.Value, &s); err != nil {
			var u uint64
			if err := json.Unmarshal(wc.Value, &u); err != nil {
				return nil, fmt.Errorf("uint64 cell: %w", err)
			}
			return Uint64(u), nil
		}
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("uint64 cell: %w", err)
		}
		return Uint64(u), nil
	case "bool":
		var b bool
		if err := json.Unmarshal(wc.Value, &b); err != nil {
			return nil, fmt.Errorf("bool cell: %w", err)
		}
		return Bool(b), nil
	case "struct":
		s := NewStruct()
		for _, f := range wc.Fields {
			c, err := decodeCell(f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			s.Set(f.Name, c)
		}
		return s, nil
	case "object":
		if wc.Class == "" {
			return nil, fmt.Errorf("object cell without class")
		}
		names := make([]string, len(wc.Fields))
		for i, f := range wc.Fields {
			names[i] = f.Name
		}
		o := NewObject(wc.Class, names...)
		for _, f := range wc.Fields {
			c, err := decodeCell(f.Value)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", f.Name, err)
			}
			_ = o.SetProperty(f.Name, c)
		}
		return o, nil
	}
	return nil, fmt.Errorf("unknown cell type %q", wc.Type)
}
