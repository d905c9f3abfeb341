package wasmbridge

import (
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

// Request is one call from the guest.
//
//	{"class":"Counter","nargout":1,"args":[{"type":"object","class":"Counter","fields":[...]}, ...]}
type Request struct {
	Class string       `json:"class" validate:"required"`
	Args  []value.Wire `json:"args"`
	NOut  int          `json:"nargout" validate:"min=0,max=64"`
}

// Response is the host's answer. Instance echoes the first argument when it
// was an object, with its backend slot updated, so the guest can keep
// holding the instance between calls.
type Response struct {
	Instance *value.Wire        `json:"instance,omitempty"`
	Error    *errors.Descriptor `json:"error,omitempty"`
	Outputs  []value.Wire       `json:"outputs"`
}

// Error categories raised by the bridge itself.
const (
	IDInvalidRequest    = "objbridge:invalidRequest"
	IDRequestTooLarge   = "objbridge:requestTooLarge"
	IDResponseTooLarge  = "objbridge:responseTooLarge"
	IDEncodeFailed      = "objbridge:encodeFailed"
	IDNoPendingResponse = "objbridge:noPendingResponse"
)

const (
	defaultModuleName     = "objbridge"
	defaultMaxRequestSize = 1 << 20
)

func failure(id, msg string) Response {
	return Response{
		Outputs: []value.Wire{},
		Error:   &errors.Descriptor{ID: id, Message: msg},
	}
}

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}
