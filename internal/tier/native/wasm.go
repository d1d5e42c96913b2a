// Package native implements the native-compiled execution tier (spec.md
// §4.H.2.1): tests whose body is a single literal-vs-literal comparison
// are hand-assembled into a tiny WASM module and run through wazero
// instead of the embedded interpreter, cached by source hash.
package native

const (
	opI32Const = 0x41
	opI32Eq    = 0x46
	opI32Ne    = 0x47
	opI32LtS   = 0x48
	opI32GtS   = 0x4A
	opI32LeS   = 0x4C
	opI32GeS   = 0x4E
	opI32Eqz   = 0x45
	opEnd      = 0x0B

	valtypeI32 = 0x7F
	funcForm   = 0x60

	exportKindFunc = 0x00

	secType     = 1
	secFunction = 3
	secExport   = 7
	secCode     = 10
)

var opForComparison = map[string]byte{
	"==": opI32Eq,
	"!=": opI32Ne,
	"<":  opI32LtS,
	">":  opI32GtS,
	"<=": opI32LeS,
	">=": opI32GeS,
}

// ExportName is the exported entry point every compiled module provides.
const ExportName = "run"

// assembleComparison builds a complete WASM binary module exporting a
// zero-argument function "run" returning i32: 0 if `a <op> b` holds
// ("pass"), 1 otherwise ("fail") — the inverse of the comparison itself,
// per spec.md §4.H.2.1's "returns 0 for pass, nonzero for fail" contract.
func assembleComparison(a, b int64, op string) ([]byte, bool) {
	code, ok := opForComparison[op]
	if !ok {
		return nil, false
	}

	body := []byte{
		opI32Const,
	}
	body = append(body, sleb128(a)...)
	body = append(body, opI32Const)
	body = append(body, sleb128(b)...)
	body = append(body, code)
	body = append(body, opI32Eqz, opEnd)

	// Code section entry: (locals decl count=0) + body, length-prefixed.
	funcBody := append(uleb128(0), body...)
	funcEntry := append(uleb128(uint32(len(funcBody))), funcBody...)

	var mod []byte
	mod = append(mod, 0x00, 0x61, 0x73, 0x6D) // magic "\0asm"
	mod = append(mod, 0x01, 0x00, 0x00, 0x00) // version 1

	// Type section: one type, () -> (i32).
	typeSec := []byte{funcForm, 0x00, 0x01, valtypeI32}
	mod = appendSection(mod, secType, prefixCount(1, typeSec))

	// Function section: one function using type index 0.
	funcSec := uleb128(0)
	mod = appendSection(mod, secFunction, prefixCount(1, funcSec))

	// Export section: export func 0 as "run".
	name := []byte(ExportName)
	exportSec := append(uleb128(uint32(len(name))), name...)
	exportSec = append(exportSec, exportKindFunc)
	exportSec = append(exportSec, uleb128(0)...)
	mod = appendSection(mod, secExport, prefixCount(1, exportSec))

	// Code section: one function body.
	mod = appendSection(mod, secCode, prefixCount(1, funcEntry))

	return mod, true
}

// prefixCount prepends a ULEB128 vector-length count to payload.
func prefixCount(count uint32, payload []byte) []byte {
	return append(uleb128(count), payload...)
}

// appendSection writes a WASM section: id byte, ULEB128 content length,
// then content.
func appendSection(mod []byte, id byte, content []byte) []byte {
	mod = append(mod, id)
	mod = append(mod, uleb128(uint32(len(content)))...)
	mod = append(mod, content...)
	return mod
}
