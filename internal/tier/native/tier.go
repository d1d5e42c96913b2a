package native

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/tetratelabs/wazero"
)

// Tier runs recognized literal-comparison test bodies through a compiled
// WASM module instead of the embedded interpreter. It caches compiled
// modules by source hash (spec.md §4.H.2.1: "cached by source hash").
type Tier struct {
	rt wazero.Runtime

	mu    sync.Mutex
	cache map[[32]byte]wazero.CompiledModule
}

// New builds a Tier backed by its own wazero runtime with compilation
// caching enabled.
func New(ctx context.Context) *Tier {
	cfg := wazero.NewRuntimeConfig().WithCompilationCache(wazero.NewCompilationCache())
	return &Tier{
		rt:    wazero.NewRuntimeWithConfig(ctx, cfg),
		cache: map[[32]byte]wazero.CompiledModule{},
	}
}

// Close releases the underlying wazero runtime and every compiled module
// cached within it.
func (t *Tier) Close(ctx context.Context) error {
	return t.rt.Close(ctx)
}

// TryRun attempts to run body as a native-compiled comparison. ok is
// false when body does not match the recognized pattern or compilation
// fails, signaling the caller to fall back to the embedded tier (spec.md
// §4.H.2.1: "Fallback to tier 2 on any compilation failure").
func (t *Tier) TryRun(ctx context.Context, body string) (pass bool, ok bool) {
	a, b, op, detected := Detect(body)
	if !detected {
		return false, false
	}
	wasmBytes, asmOK := assembleComparison(a, b, op)
	if !asmOK {
		return false, false
	}

	compiled, err := t.compiled(ctx, wasmBytes)
	if err != nil {
		return false, false
	}

	mod, err := t.rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return false, false
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(ExportName)
	if fn == nil {
		return false, false
	}
	results, err := fn.Call(ctx)
	if err != nil || len(results) != 1 {
		return false, false
	}
	return results[0] == 0, true
}

func (t *Tier) compiled(ctx context.Context, wasmBytes []byte) (wazero.CompiledModule, error) {
	hash := sha256.Sum256(wasmBytes)

	t.mu.Lock()
	if c, found := t.cache[hash]; found {
		t.mu.Unlock()
		return c, nil
	}
	t.mu.Unlock()

	compiled, err := t.rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.cache[hash] = compiled
	t.mu.Unlock()
	return compiled, nil
}
