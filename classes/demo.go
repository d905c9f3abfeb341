package classes

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/wippyai/objbridge/dispatch"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

// DemoName is the host class name of Demo.
const DemoName = "Demo"

var validate = validator.New()

// DemoState is the saved form of a Demo.
type DemoState struct {
	A int       `json:"A" validate:"min=-10,max=10" jsonschema:"minimum=-10,maximum=10,description=VarA"`
	B []float64 `json:"B" jsonschema:"description=VarB"`
	C string    `json:"C" validate:"excludesall=\n" jsonschema:"description=VarC"`
}

// Demo wraps three typed properties and two actions.
type Demo struct {
	state   DemoState
	trained int
	tests   []int
}

// NewDemo creates a Demo with the default state.
func NewDemo() *Demo {
	return &Demo{state: DemoState{A: 1, B: []float64{1, 2, 3}, C: "StringVar"}}
}

// DemoClass describes Demo to the dispatcher.
func DemoClass() dispatch.Class[*Demo] {
	return dispatch.Class[*Demo]{
		Name: DemoName,
		New: func(*dispatch.Call) (*Demo, error) {
			return NewDemo(), nil
		},
		Static: demoStatic,
		Actions: []dispatch.ActionSpec{
			{Name: "train", Help: "run training"},
			{Name: "test", Args: []string{"id"}, Help: "run test id"},
			{Name: "static_fcn", Static: true, Help: "run the static function"},
			{Name: "schema", Static: true, NOut: 1, Help: "JSON schema of the saved state"},
		},
	}
}

func demoStatic(call *dispatch.Call) error {
	switch call.Action {
	case "static_fcn":
		dispatch.Logger().Info("Executing static function", zap.String("class", DemoName))
		return nil
	case "schema":
		if len(call.Args) != 0 || call.NOut > 1 {
			return errors.InvalidArguments("schema", "Schema takes no input argument and returns one.")
		}
		s, err := Schema()
		if err != nil {
			return err
		}
		return call.Return(value.String(s))
	}
	return dispatch.ErrNotHandled
}

// Schema returns the JSON schema of DemoState.
func Schema() (string, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	data, err := json.MarshalIndent(reflector.Reflect(&DemoState{}), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}
	return string(data), nil
}

// State returns a copy of the current state.
func (d *Demo) State() DemoState {
	s := d.state
	s.B = append([]float64(nil), s.B...)
	return s
}

// Trained returns how many times train ran.
func (d *Demo) Trained() int { return d.trained }

// Tests returns the ids test ran with.
func (d *Demo) Tests() []int { return d.tests }

func (d *Demo) PropertyNames() []string {
	return []string{"VarA", "VarB", "VarC"}
}

func (d *Demo) Get(name string) (value.Cell, error) {
	switch name {
	case "VarA":
		return value.MakeScalar(float64(d.state.A)), nil
	case "VarB":
		return value.MakeVector(d.state.B), nil
	case "VarC":
		return value.String(d.state.C), nil
	}
	return nil, unknownProperty(DemoName, name)
}

func (d *Demo) Set(name string, v value.Cell) error {
	next := d.State()
	switch name {
	case "VarA":
		n, err := value.ReadInt(v)
		if err != nil {
			return invalidValue("VarA must be a scalar integer between -10 and 10.")
		}
		next.A = n
	case "VarB":
		fs, err := value.ReadFloats(v)
		if err != nil {
			return invalidValue("VarB must be a vector of (real) doubles.")
		}
		next.B = fs
	case "VarC":
		s, err := value.ReadString(v)
		if err != nil {
			return invalidValue("VarC must be a character string.")
		}
		next.C = s
	default:
		return unknownProperty(DemoName, name)
	}

	if err := validate.Struct(next); err != nil {
		switch name {
		case "VarA":
			return invalidValue("VarA must be a scalar integer between -10 and 10.")
		case "VarC":
			return invalidValue("VarC does not support multi-row string.")
		}
		return errors.InvalidProperty(DemoName, "invalidPropertyValue", err.Error())
	}
	d.state = next
	return nil
}

// Save returns the state as a struct with fields A, B and C.
func (d *Demo) Save() (value.Cell, error) {
	s := value.NewStruct()
	for _, f := range []struct{ field, prop string }{{"A", "VarA"}, {"B", "VarB"}, {"C", "VarC"}} {
		v, err := d.Get(f.prop)
		if err != nil {
			return nil, err
		}
		s.Set(f.field, v)
	}
	return s, nil
}

// Load restores a struct produced by Save. Either every field is applied or
// none is.
func (d *Demo) Load(snapshot value.Cell) error {
	s, ok := snapshot.(*value.Struct)
	if !ok {
		return errors.InvalidArguments("load", "Load action's third argument must be a struct produced by save.")
	}
	tmp := &Demo{state: d.State()}
	for _, f := range []struct{ field, prop string }{{"A", "VarA"}, {"B", "VarB"}, {"C", "VarC"}} {
		v, ok := s.Field(f.field)
		if !ok {
			return errors.InvalidArguments("load", "Snapshot is missing field "+f.field+".")
		}
		if err := tmp.Set(f.prop, v); err != nil {
			return err
		}
	}
	d.state = tmp.state
	return nil
}

func (d *Demo) Action(call *dispatch.Call) error {
	switch call.Action {
	case "train":
		if err := call.Arity(0, 0, "Train command takes no additional input argument and produces no output argument."); err != nil {
			return errors.InvalidArguments(DemoName+":train", errors.MessageOf(err))
		}
		d.trained++
		dispatch.Logger().Info("Executing train()", zap.String("class", DemoName))
	case "test":
		if err := call.Arity(1, 0, "Test command takes one additional input argument and produces no output argument."); err != nil {
			return errors.InvalidArguments(DemoName+":test", errors.MessageOf(err))
		}
		id, err := value.ReadInt(call.Args[0])
		if err != nil {
			return errors.InvalidArguments(DemoName+":test", "ID input must be an integer.")
		}
		d.tests = append(d.tests, id)
		dispatch.Logger().Info("Executing test()", zap.String("class", DemoName), zap.Int("id", id))
	default:
		return dispatch.ErrNotHandled
	}
	return nil
}

func invalidValue(msg string) error {
	return errors.InvalidProperty(DemoName, "invalidPropertyValue", msg)
}
