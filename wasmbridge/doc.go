// Package wasmbridge exposes a dispatch module to WebAssembly guests
// through a wazero host module.
//
// Guests send JSON requests through guest memory:
//
//	{"class": "Counter", "nargout": 1, "args": [<cell>, ...]}
//
// and receive
//
//	{"outputs": [<cell>, ...], "instance": <cell>, "error": {"id": "...", "message": "..."}}
//
// Cells use the tagged form of value.Wire. Host instances live on the guest
// side: the guest passes its object as the first argument and replaces it
// with the returned instance, which carries the updated backend token.
//
// The host module exports two functions. Both take ptr<<32|len buffers:
//
//	invoke(req i64, resp i64) -> i32   bytes written, -size if resp is too small, -1 if req is unreadable
//	result(resp i64) -> i32            writes the response kept by a too-small invoke, -2 if none
package wasmbridge
