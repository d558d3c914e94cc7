package native

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero/api"
)

// NativeFunc implements one native symbol. stack holds the arguments on
// entry; results are written back from stack[0].
type NativeFunc func(ctx context.Context, inst *Instance, stack []uint64)

type symbolDef struct {
	fn      NativeFunc
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// Library is a set of native symbols that instantiate into one module.
type Library struct {
	index map[string]int
	name  string
	defs  []symbolDef
}

// NewLibrary creates an empty library.
func NewLibrary(name string) *Library {
	return &Library{name: name, index: make(map[string]int)}
}

// Name returns the library name.
func (l *Library) Name() string {
	return l.name
}

// Define adds or replaces a native symbol.
func (l *Library) Define(symbol string, params, results []api.ValueType, fn NativeFunc) *Library {
	def := symbolDef{name: symbol, params: params, results: results, fn: fn}
	if i, ok := l.index[symbol]; ok {
		l.defs[i] = def
		return l
	}
	l.index[symbol] = len(l.defs)
	l.defs = append(l.defs, def)
	return l
}

// Has reports whether symbol is defined.
func (l *Library) Has(symbol string) bool {
	_, ok := l.index[symbol]
	return ok
}

// Symbols returns the defined symbols in sorted order.
func (l *Library) Symbols() []string {
	out := make([]string, 0, len(l.defs))
	for _, d := range l.defs {
		out = append(out, d.name)
	}
	sort.Strings(out)
	return out
}

// Signature returns the wasm signature of a symbol.
func (l *Library) Signature(symbol string) (params, results []api.ValueType, ok bool) {
	i, ok := l.index[symbol]
	if !ok {
		return nil, nil, false
	}
	return l.defs[i].params, l.defs[i].results, true
}

// Common signatures.
var (
	I32 = api.ValueTypeI32
	I64 = api.ValueTypeI64
	F32 = api.ValueTypeF32
	F64 = api.ValueTypeF64
)

// Sig is shorthand for a value type list.
func Sig(types ...api.ValueType) []api.ValueType {
	return types
}
