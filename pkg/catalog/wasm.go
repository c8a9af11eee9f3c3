package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WASMChecker runs a WASI module as a rule predicate. The module receives the
// message text on stdin and must write "true" or "false" to stdout; anything
// else is a check failure. Deny-by-default sandbox: no filesystem, no
// network, no environment, no host clock or entropy.
type WASMChecker struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

// NewWASMChecker compiles wasmBytes once; compilation failures are
// configuration errors.
func NewWASMChecker(ctx context.Context, wasmBytes []byte) (*WASMChecker, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig())
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = r.Close(ctx)
		return nil, configErrorf("wasm rule: compile failed: %v", err)
	}

	return &WASMChecker{runtime: r, compiled: compiled}, nil
}

// Check implements Checker. Each call instantiates the module fresh so rule
// evaluations cannot observe each other.
func (w *WASMChecker) Check(ctx context.Context, msg Message) (bool, error) {
	var stdout, stderr bytes.Buffer
	modCfg := wazero.NewModuleConfig().
		WithName(""). // anonymous: concurrent instantiations allowed
		WithStartFunctions("_start").
		WithStdin(strings.NewReader(msg.Text)).
		WithStdout(&stdout).
		WithStderr(&stderr)

	mod, err := w.runtime.InstantiateModule(ctx, w.compiled, modCfg)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("wasm rule: %w", ctx.Err())
		}
		return false, fmt.Errorf("wasm rule: instantiation failed: %w", err)
	}
	defer func() { _ = mod.Close(ctx) }()

	if stderr.Len() > 0 {
		return false, fmt.Errorf("wasm rule: stderr: %s", stderr.String())
	}

	switch verdict := strings.TrimSpace(stdout.String()); verdict {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("wasm rule: verdict %q, want true or false", verdict)
	}
}

// Close releases the module runtime.
func (w *WASMChecker) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}
