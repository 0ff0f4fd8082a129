// Package wasmtest assembles small guest modules for tests without a
// Wasm toolchain.
package wasmtest

import "github.com/woxQAQ/native-bridge/pkg/abi"

// HeapBase is the first address handed out by the guest allocator.
const HeapBase = 1024

// Module describes a hand-assembled guest implementing the bridge
// exports over a bump allocator starting at HeapBase.
type Module struct {
	// Export aliases (canonical -> guest name).
	Names map[string]string
	// Canonical export left out of the export section.
	Omit string
	// constant() loops forever instead of returning.
	Spin bool
	// deallocate(ptr, len) forwards the block to host.log_message at warn level.
	LogOnDeallocate bool
	// sum(a, b) returns a - b.
	BrokenSum bool
	// When non-zero, an exported _initialize moves the allocator to this address.
	InitHeapBase int32
}

func (m Module) resolve(export string) string {
	if name, ok := m.Names[export]; ok && name != "" {
		return name
	}
	return export
}

func uleb(v int) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(items ...[]byte) []byte {
	return cat(uleb(len(items)), cat(items...))
}

func wasmName(s string) []byte {
	return cat(uleb(len(s)), []byte(s))
}

func section(id byte, content []byte) []byte {
	return cat([]byte{id}, uleb(len(content)), content)
}

func funcBody(code ...byte) []byte {
	body := append([]byte{0x00}, code...) // no locals
	return cat(uleb(len(body)), body)
}

// Bytes assembles the module.
func (m Module) Bytes() []byte {
	// () -> i32, (i32, i32) -> i32, (i32, i32) -> (), (i32) -> (), (i32) -> i32, (i32, i32, i32) -> (), () -> ()
	types := vec(
		[]byte{0x60, 0x00, 0x01, 0x7f},
		[]byte{0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f},
		[]byte{0x60, 0x02, 0x7f, 0x7f, 0x00},
		[]byte{0x60, 0x01, 0x7f, 0x00},
		[]byte{0x60, 0x01, 0x7f, 0x01, 0x7f},
		[]byte{0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x00},
		[]byte{0x60, 0x00, 0x00},
	)

	var imports []byte
	funcBase := 0
	if m.LogOnDeallocate {
		imports = section(0x02, vec(
			cat(wasmName(abi.HostModule), wasmName(abi.HostLogMessage), []byte{0x00, 0x05}),
		))
		funcBase = 1
	}

	// Type indices of constant, sum, increment_array, increment_point, allocate, deallocate.
	funcTypes := [][]byte{{0x00}, {0x01}, {0x02}, {0x03}, {0x04}, {0x02}}
	if m.InitHeapBase != 0 {
		funcTypes = append(funcTypes, []byte{0x06})
	}
	funcs := vec(funcTypes...)

	memory := vec([]byte{0x00, 0x01}) // min 1 page, no max

	// (global (mut i32) (i32.const 1024))
	globals := vec([]byte{0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b})

	exports := [][]byte{cat(wasmName("memory"), []byte{0x02, 0x00})}
	for i, export := range abi.Exports {
		if export == m.Omit {
			continue
		}
		exports = append(exports, cat(wasmName(m.resolve(export)), []byte{0x00}, uleb(funcBase+i)))
	}
	if m.InitHeapBase != 0 {
		exports = append(exports, cat(wasmName("_initialize"), []byte{0x00}, uleb(funcBase+len(abi.Exports))))
	}

	constant := funcBody(0x41, 0x2a, 0x0b) // i32.const 42
	if m.Spin {
		// loop br 0 end unreachable
		constant = funcBody(0x03, 0x40, 0x0c, 0x00, 0x0b, 0x00, 0x0b)
	}

	sum := funcBody(0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b)
	if m.BrokenSum {
		sum = funcBody(0x20, 0x00, 0x20, 0x01, 0x6b, 0x0b)
	}

	// block loop
	//   br_if 1 (count == 0)
	//   *p += 1; p += 4; count -= 1
	//   br 0
	// end end
	incrementArray := funcBody(
		0x02, 0x40, 0x03, 0x40,
		0x20, 0x01, 0x45, 0x0d, 0x01,
		0x20, 0x00, 0x20, 0x00, 0x28, 0x02, 0x00, 0x41, 0x01, 0x6a, 0x36, 0x02, 0x00,
		0x20, 0x00, 0x41, 0x04, 0x6a, 0x21, 0x00,
		0x20, 0x01, 0x41, 0x01, 0x6b, 0x21, 0x01,
		0x0c, 0x00,
		0x0b, 0x0b, 0x0b,
	)

	// x += 1; y += 1
	incrementPoint := funcBody(
		0x20, 0x00, 0x20, 0x00, 0x28, 0x02, 0x00, 0x41, 0x01, 0x6a, 0x36, 0x02, 0x00,
		0x20, 0x00, 0x20, 0x00, 0x28, 0x02, 0x04, 0x41, 0x01, 0x6a, 0x36, 0x02, 0x04,
		0x0b,
	)

	// result = heap; heap += size
	allocate := funcBody(0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b)

	deallocate := funcBody(0x0b)
	if m.LogOnDeallocate {
		deallocate = funcBody(0x41, byte(abi.LogWarn), 0x20, 0x00, 0x20, 0x01, 0x10, 0x00, 0x0b)
	}

	bodies := [][]byte{constant, sum, incrementArray, incrementPoint, allocate, deallocate}
	if m.InitHeapBase != 0 {
		// heap = InitHeapBase
		bodies = append(bodies, funcBody(cat([]byte{0x41}, sleb(m.InitHeapBase), []byte{0x24, 0x00, 0x0b})...))
	}
	code := vec(bodies...)

	return cat(
		[]byte{0x00, 0x61, 0x73, 0x6d}, // \0asm
		[]byte{0x01, 0x00, 0x00, 0x00}, // version 1
		section(0x01, types),
		imports,
		section(0x03, funcs),
		section(0x05, memory),
		section(0x06, globals),
		section(0x07, vec(exports...)),
		section(0x0a, code),
	)
}
