// Package script runs YAML call scripts against a dispatch module.
//
//	calls:
//	  - class: Counter
//	    instance: c            # workspace object, created on first use
//	  - class: Counter
//	    instance: c
//	    args: [next]
//	    nargout: 1
//	    assign: [n]            # outputs become workspace variables
//	  - class: Counter
//	    instance: c
//	    args: [set, value, $n] # $name reads a variable or instance
//	  - class: Counter
//	    instance: c
//	    args: [jump]
//	    expect_error: Counter:unknownAction
package script

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/objbridge/dispatch"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

var validate = validator.New()

// Script is a sequence of calls.
type Script struct {
	Calls []Step `yaml:"calls" validate:"required,min=1,dive"`
}

// Step is one call.
type Step struct {
	Class       string   `yaml:"class" validate:"required"`
	Instance    string   `yaml:"instance"`
	ExpectError string   `yaml:"expect_error"`
	Args        []any    `yaml:"args"`
	Assign      []string `yaml:"assign" validate:"dive,required"`
	NOut        int      `yaml:"nargout" validate:"min=0"`
}

// Result is the outcome of one step.
type Result struct {
	Error   *errors.Descriptor
	Outputs []value.Cell
	Step    Step
	Index   int
}

// Invoker runs a call for a named class. *dispatch.Module is an Invoker.
type Invoker interface {
	Invoke(class string, nargout int, inputs []value.Cell) ([]value.Cell, error)
}

var _ Invoker = (*dispatch.Module)(nil)

// Parse decodes and validates a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("script validation failed: %w", err)
	}
	for i, step := range s.Calls {
		if step.Instance == "" && len(step.Args) == 0 {
			return nil, fmt.Errorf("call %d: a static call needs an action name", i+1)
		}
	}
	return &s, nil
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

// Runner executes scripts. Instances and assigned variables persist across
// Run calls until Clear.
type Runner struct {
	invoker   Invoker
	logger    *zap.Logger
	instances map[string]*value.Object
	vars      map[string]value.Cell
}

// NewRunner creates a runner over inv.
func NewRunner(inv Invoker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		invoker:   inv,
		logger:    logger.Named("script"),
		instances: make(map[string]*value.Object),
		vars:      make(map[string]value.Cell),
	}
}

// Run executes every step of s. It stops at the first call that fails
// without expecting to, or that was expected to fail and did not; the
// results so far are returned with the error.
func (r *Runner) Run(ctx context.Context, s *Script) ([]Result, error) {
	results := make([]Result, 0, len(s.Calls))
	for i, step := range s.Calls {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.Step(i, step)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Step executes one call.
func (r *Runner) Step(index int, step Step) (Result, error) {
	res := Result{Step: step, Index: index}

	inputs, err := r.inputs(step)
	if err != nil {
		return res, fmt.Errorf("call %d: %w", index+1, err)
	}

	r.logger.Debug("call", zap.Int("index", index+1), zap.String("class", step.Class), zap.Int("nargout", step.NOut))
	out, callErr := r.invoker.Invoke(step.Class, step.NOut, inputs)

	if callErr != nil {
		d := errors.Describe(callErr, errors.JoinID(step.Class, "mex", "failedAction"))
		res.Error = &d
		if step.ExpectError == "" {
			return res, fmt.Errorf("call %d: %s: %s", index+1, d.ID, d.Message)
		}
		if d.ID != step.ExpectError {
			return res, fmt.Errorf("call %d: expected error %s, got %s: %s", index+1, step.ExpectError, d.ID, d.Message)
		}
		return res, nil
	}

	res.Outputs = out
	if step.ExpectError != "" {
		return res, fmt.Errorf("call %d: expected error %s, call succeeded", index+1, step.ExpectError)
	}
	if len(step.Assign) > len(out) {
		return res, fmt.Errorf("call %d: %d outputs cannot fill %d assignments", index+1, len(out), len(step.Assign))
	}
	for i, name := range step.Assign {
		r.vars[name] = out[i]
	}
	return res, nil
}

func (r *Runner) inputs(step Step) ([]value.Cell, error) {
	var inputs []value.Cell
	if step.Instance != "" {
		inputs = append(inputs, r.instance(step.Instance, step.Class))
	}
	for i, a := range step.Args {
		c, err := r.arg(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		inputs = append(inputs, c)
	}
	return inputs, nil
}

func (r *Runner) arg(a any) (value.Cell, error) {
	if s, ok := a.(string); ok && strings.HasPrefix(s, "$") {
		name := s[1:]
		if v, ok := r.vars[name]; ok {
			return v, nil
		}
		if o, ok := r.instances[name]; ok {
			return o, nil
		}
		return nil, fmt.Errorf("undefined variable %s", name)
	}
	return value.FromGo(a)
}

func (r *Runner) instance(name, class string) *value.Object {
	if o, ok := r.instances[name]; ok {
		return o
	}
	o := value.NewInstance(class)
	r.instances[name] = o
	return o
}

// Instance returns a workspace instance.
func (r *Runner) Instance(name string) (*value.Object, bool) {
	o, ok := r.instances[name]
	return o, ok
}

// Var returns an assigned variable.
func (r *Runner) Var(name string) (value.Cell, bool) {
	v, ok := r.vars[name]
	return v, ok
}

// Instances returns the workspace instance names, sorted.
func (r *Runner) Instances() []string {
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear deletes the backend of every workspace instance that still has one
// and empties the workspace.
func (r *Runner) Clear() error {
	var failed []string
	for _, name := range r.Instances() {
		o := r.instances[name]
		slot, _ := o.Property(value.BackendProperty)
		if value.IsEmpty(slot) {
			continue
		}
		if _, err := r.invoker.Invoke(o.Class(), 0, []value.Cell{o, value.String(dispatch.ActionDelete)}); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %s", name, errors.MessageOf(err)))
		}
	}
	r.instances = make(map[string]*value.Object)
	r.vars = make(map[string]value.Cell)
	if len(failed) > 0 {
		return fmt.Errorf("clear workspace: %s", strings.Join(failed, "; "))
	}
	return nil
}
