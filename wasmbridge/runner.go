package wasmbridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// RunnerConfig holds configuration for guest execution.
type RunnerConfig struct {
	Stdout io.Writer
	Stderr io.Writer

	// Args are the guest's command line arguments.
	Args []string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// Runner runs WebAssembly guests against a bridge.
type Runner struct {
	runtime      wazero.Runtime
	bridge       *Bridge
	cfg          RunnerConfig
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// NewRunner creates a runtime with the bridge's host module registered.
func NewRunner(ctx context.Context, b *Bridge, cfg *RunnerConfig) (*Runner, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	r := &Runner{bridge: b}
	if cfg != nil {
		r.cfg = *cfg
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
	}

	r.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if _, err := b.Instantiate(ctx, r.runtime); err != nil {
		_ = r.runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate %s host module: %w", b.ModuleName(), err)
	}
	return r, nil
}

// Runtime returns the underlying wazero runtime.
func (r *Runner) Runtime() wazero.Runtime {
	return r.runtime
}

// InitWASI instantiates WASI preview1 once for this runner's runtime.
func (r *Runner) InitWASI(ctx context.Context) error {
	if r.wasiInitDone.Load() {
		return nil
	}

	r.wasiInitMu.Lock()
	defer r.wasiInitMu.Unlock()

	if r.wasiInitDone.Load() {
		return nil
	}

	if r.runtime.Module(wasi_snapshot_preview1.ModuleName) == nil {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r.runtime); err != nil {
			return fmt.Errorf("instantiate WASI: %w", err)
		}
	}

	r.wasiInitDone.Store(true)
	return nil
}

// Run instantiates the guest and calls fn. An empty fn runs the guest's
// _start function instead. A clean exit with code 0 is not an error.
func (r *Runner) Run(ctx context.Context, wasm []byte, fn string) ([]uint64, error) {
	if err := r.InitWASI(ctx); err != nil {
		return nil, err
	}

	modCfg := wazero.NewModuleConfig().WithName("")
	if r.cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(r.cfg.Stdout)
	}
	if r.cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(r.cfg.Stderr)
	}
	if len(r.cfg.Args) > 0 {
		modCfg = modCfg.WithArgs(r.cfg.Args...)
	}
	if fn != "" {
		modCfg = modCfg.WithStartFunctions()
	}

	mod, err := r.runtime.InstantiateWithConfig(ctx, wasm, modCfg)
	if err != nil {
		if exitOK(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("instantiate guest: %w", err)
	}
	defer mod.Close(ctx)

	if fn == "" {
		return nil, nil
	}
	return call(ctx, mod, fn)
}

func call(ctx context.Context, mod api.Module, fn string) ([]uint64, error) {
	f := mod.ExportedFunction(fn)
	if f == nil {
		return nil, fmt.Errorf("guest has no export %q", fn)
	}
	results, err := f.Call(ctx)
	if err != nil && !exitOK(err) {
		return nil, fmt.Errorf("call %s: %w", fn, err)
	}
	return results, nil
}

func exitOK(err error) bool {
	var exitErr *sys.ExitError
	return stderrors.As(err, &exitErr) && exitErr.ExitCode() == 0
}

// Close releases the runtime.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
