// Package dispatch routes host calls to wrapped native objects.
//
// Every call for a class enters through one function,
//
//	outputs, err := entry.Invoke(nargout, inputs)
//
// and is classified by its first inputs:
//
//	Invoke(n, "name", args...)        static action
//	Invoke(n, obj, args...)           construct, when obj's backend is empty
//	Invoke(n, obj, "delete")          destroy, clears the backend
//	Invoke(n, obj, "action", args...) instance action
//
// Instance actions try the built-ins get, set, save and load when the native
// type implements Properties (and PropertyLister, Saver or Loader), then the
// type's ActionHandler. A type without a capability may handle the reserved
// name itself.
//
// Errors carry an ID of colon-separated segments headed by the class name.
// Failures raised by native code are nested under <Class>:mex: with their
// own category kept:
//
//	Counter:mex:invalidInput
//	Counter:missingAction
//	Counter:mex:invalidObjectHandle
//	Counter:mex:get:invalidArguments
//	Counter:unknownAction
package dispatch
