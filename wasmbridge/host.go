package wasmbridge

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Host function results.
const (
	// ResultUnreadable means the request or response buffer lies outside
	// guest memory.
	ResultUnreadable int32 = -1
	// ResultNoPending means result was called without a pending response.
	ResultNoPending int32 = -2
)

// Instantiate registers the bridge's host module with r. Guests import
//
//	invoke(req i64, resp i64) -> i32
//	result(resp i64) -> i32
//
// where req and resp pack ptr<<32|len of guest memory. invoke runs the
// request and writes the JSON response into resp, returning the number of
// bytes written. When resp is too small it returns the negated size
// needed and keeps the response; result copies that pending response into
// a larger buffer without running the call again.
func (b *Bridge) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	i64 := []api.ValueType{api.ValueTypeI64}
	i32 := []api.ValueType{api.ValueTypeI32}

	return r.NewHostModuleBuilder(b.cfg.ModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeI32(b.Serve(mod.Memory(), stack[0], stack[1]))
		}), []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, i32).
		Export("invoke").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeI32(b.Result(mod.Memory(), stack[0]))
		}), i64, i32).
		Export("result").
		Instantiate(ctx)
}

// Serve reads a request from mem, runs it and writes the response.
func (b *Bridge) Serve(mem api.Memory, req, resp uint64) int32 {
	if mem == nil {
		return ResultUnreadable
	}

	ptr, length := unpackPtrLen(req)

	var out Response
	if length > b.cfg.MaxRequestSize {
		out = failure(IDRequestTooLarge,
			fmt.Sprintf("request size %d exceeds maximum %d bytes", length, b.cfg.MaxRequestSize))
	} else {
		data, ok := mem.Read(ptr, length)
		if !ok {
			b.logger.Error("failed to read request from guest memory",
				zap.Uint32("ptr", ptr), zap.Uint32("len", length))
			return ResultUnreadable
		}
		out = b.Handle(data)
	}

	encoded := b.encode(out)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	return b.write(mem, resp, encoded)
}

// Result writes the pending response of the last invoke that did not fit.
func (b *Bridge) Result(mem api.Memory, resp uint64) int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return ResultNoPending
	}
	encoded := b.pending
	b.pending = nil
	return b.write(mem, resp, encoded)
}

// write copies encoded into the resp buffer. b.mu must be held.
func (b *Bridge) write(mem api.Memory, resp uint64, encoded []byte) int32 {
	ptr, capacity := unpackPtrLen(resp)
	if uint64(len(encoded)) > uint64(capacity) {
		b.pending = encoded
		return -int32(len(encoded))
	}
	if !mem.Write(ptr, encoded) {
		b.logger.Error("failed to write response to guest memory",
			zap.Uint32("ptr", ptr), zap.Int("len", len(encoded)))
		return ResultUnreadable
	}
	return int32(len(encoded))
}
