package native

import (
	"github.com/tetratelabs/wazero/api"
)

// moduleBuilder synthesizes the core module a library lives in. It imports
// every native from the host module, re-exports each one through a thin
// wrapper and owns the linear memory the heap runs on.
type moduleBuilder struct {
	hostModule   string
	funcs        []moduleFunc
	initialPages uint32
}

type moduleFunc struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

func newModuleBuilder(hostModule string, initialPages uint32) *moduleBuilder {
	if initialPages == 0 {
		initialPages = 1
	}
	return &moduleBuilder{hostModule: hostModule, initialPages: initialPages}
}

func (b *moduleBuilder) addFunc(name string, params, results []api.ValueType) {
	b.funcs = append(b.funcs, moduleFunc{name: name, params: params, results: results})
}

// build generates the module bytes.
func (b *moduleBuilder) build() []byte {
	var wasm []byte
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	wasm = appendSection(wasm, 0x01, b.typeSection())
	wasm = appendSection(wasm, 0x02, b.importSection())
	wasm = appendSection(wasm, 0x03, b.funcSection())
	wasm = appendSection(wasm, 0x05, b.memorySection())
	wasm = appendSection(wasm, 0x07, b.exportSection())
	wasm = appendSection(wasm, 0x0a, b.codeSection())
	return wasm
}

func appendSection(wasm []byte, id byte, body []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, encodeULEB128(uint32(len(body)))...)
	return append(wasm, body...)
}

func (b *moduleBuilder) typeSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs)))
	for _, f := range b.funcs {
		section = append(section, 0x60)
		section = append(section, encodeULEB128(uint32(len(f.params)))...)
		for _, t := range f.params {
			section = append(section, valTypeToWasm(t))
		}
		section = append(section, encodeULEB128(uint32(len(f.results)))...)
		for _, t := range f.results {
			section = append(section, valTypeToWasm(t))
		}
	}
	return section
}

func (b *moduleBuilder) importSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs)))
	for i, f := range b.funcs {
		section = appendName(section, b.hostModule)
		section = appendName(section, f.name)
		section = append(section, 0x00)
		section = append(section, encodeULEB128(uint32(i))...)
	}
	return section
}

func (b *moduleBuilder) funcSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs)))
	for i := range b.funcs {
		section = append(section, encodeULEB128(uint32(i))...)
	}
	return section
}

func (b *moduleBuilder) memorySection() []byte {
	section := []byte{0x01, 0x00}
	return append(section, encodeULEB128(b.initialPages)...)
}

func (b *moduleBuilder) exportSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs) + 1))
	section = appendName(section, "memory")
	section = append(section, 0x02, 0x00)

	imported := uint32(len(b.funcs))
	for i, f := range b.funcs {
		section = appendName(section, f.name)
		section = append(section, 0x00)
		section = append(section, encodeULEB128(imported+uint32(i))...)
	}
	return section
}

func (b *moduleBuilder) codeSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs)))
	for i, f := range b.funcs {
		var body []byte
		body = append(body, 0x00)
		for p := range f.params {
			body = append(body, 0x20)
			body = append(body, encodeULEB128(uint32(p))...)
		}
		body = append(body, 0x10)
		body = append(body, encodeULEB128(uint32(i))...)
		body = append(body, 0x0b)

		section = append(section, encodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}

func appendName(buf []byte, name string) []byte {
	buf = append(buf, encodeULEB128(uint32(len(name)))...)
	return append(buf, name...)
}

func encodeULEB128(v uint32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		result = append(result, b)
		if v == 0 {
			break
		}
	}
	return result
}

func valTypeToWasm(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI32:
		return 0x7f
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	default:
		return 0x7f
	}
}
