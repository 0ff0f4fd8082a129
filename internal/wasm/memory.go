package wasm

import (
	"encoding/binary"
	"errors"

	"github.com/tetratelabs/wazero/api"

	"github.com/woxQAQ/native-bridge/pkg/abi"
)

var errOutOfRange = errors.New("out of range of memory size")

// Memory provides bounds-checked access to a guest's linear memory.
//
// The bridge hands raw addresses across the boundary; on the host side every
// access goes through wazero's checked Read/Write so a bad address from a
// guest becomes a MemoryAccessError instead of a host crash. Values are
// little-endian, matching the Wasm memory model.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// ReadBytes copies length bytes out of Wasm memory.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, error) {
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &MemoryAccessError{Operation: "read", Address: ptr, Length: length, Err: errOutOfRange}
	}
	return append([]byte(nil), buf...), nil
}

// WriteBytes copies data into Wasm memory at ptr.
func (m *Memory) WriteBytes(ptr uint32, data []byte) error {
	if !m.mem.Write(ptr, data) {
		return &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(data)), Err: errOutOfRange}
	}
	return nil
}

// ReadInt32s reads count int32 values starting at ptr.
func (m *Memory) ReadInt32s(ptr uint32, count uint32) ([]int32, error) {
	buf, err := m.ReadBytes(ptr, count*abi.Int32Size)
	if err != nil {
		return nil, err
	}

	out := make([]int32, count)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*abi.Int32Size:]))
	}
	return out, nil
}

// WriteInt32s writes values contiguously starting at ptr.
func (m *Memory) WriteInt32s(ptr uint32, values []int32) error {
	buf := make([]byte, len(values)*abi.Int32Size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*abi.Int32Size:], uint32(v))
	}
	return m.WriteBytes(ptr, buf)
}

// ReadPoint reads a Point at ptr.
func (m *Memory) ReadPoint(ptr uint32) (abi.Point, error) {
	v, err := m.ReadInt32s(ptr, 2)
	if err != nil {
		return abi.Point{}, err
	}
	return abi.Point{X: v[0], Y: v[1]}, nil
}

// WritePoint writes p at ptr.
func (m *Memory) WritePoint(ptr uint32, p abi.Point) error {
	return m.WriteInt32s(ptr, []int32{p.X, p.Y})
}
