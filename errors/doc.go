// Package errors provides structured error types for the object bridge.
//
// Errors are categorized by Phase (which part of a call raised it) and Kind
// (error category). Each error also carries a hierarchical ID, a colon
// separated category such as "Counter:mex:failedAction", which is what the
// host sees together with the message.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAction, errors.KindUnknownAction).
//		ID("Counter", "unknownAction").
//		Detail("Unknown action: %s", name).
//		Build()
//
// Wrapped types raise their own categorized failures with Raise:
//
//	return errors.Raise("Counter:overflow", "counter reached %d", max)
//
// At the boundary every error is reduced to a Descriptor:
//
//	d := errors.Describe(err, "Counter:mex:failedAction")
//	// d.ID, d.Message
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
