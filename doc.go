// Package objbridge exposes native Go objects to a dynamic host through one
// entry point per class.
//
// The host holds an instance object with a backend property. An empty backend
// means the native object has not been built yet; otherwise it carries an
// opaque uint64 token minted by a handle registry. Every call lands in the
// class's dispatcher, which constructs, destroys or resolves the token and
// runs the requested action.
//
// # Architecture Overview
//
//	objbridge/
//	├── errors/          Structured errors with colon-separated category IDs
//	├── value/           Host values: scalars, vectors, structs, instance objects
//	├── handle/          Generation-checked registry mapping tokens to objects
//	├── dispatch/        Per-class entry points, built-in actions, class modules
//	├── classes/         Counter and Demo classes
//	├── wasmbridge/      JSON host module serving a dispatch module to wasm guests
//	├── internal/config  YAML configuration
//	├── internal/script  YAML call scripts
//	└── cmd/objbridge    CLI and interactive TUI
//
// # Quick Start
//
// Describe a native type and route host calls to it:
//
//	entry := dispatch.MustNew(dispatch.Class[*Counter]{
//	    Name: "Counter",
//	    New:  func(*dispatch.Call) (*Counter, error) { return &Counter{}, nil },
//	})
//
//	obj := value.NewInstance("Counter")
//	_, err := entry.Invoke(0, []value.Cell{obj})                     // construct
//	out, err := entry.Invoke(1, []value.Cell{obj, value.String("next")}) // action
//	_, err = entry.Invoke(0, []value.Cell{obj, value.String("delete")})  // destroy
//
// # Errors
//
// Every failure is an *errors.Error whose ID starts with the class name, for
// example "Counter:mex:invalidObjectHandle" or "Demo:mex:load:invalidArguments".
// Use errors.IDOf and errors.MessageOf to report them.
//
// # Thread Safety
//
// A Registry is safe for concurrent use. An object cannot be destroyed while
// an action on it is running, and an action may call back into its own
// instance.
package objbridge
