package wasm

import (
	"fmt"
	"unsafe"

	"github.com/woxQAQ/native-bridge/internal/bridge"
	"github.com/woxQAQ/native-bridge/pkg/abi"
)

// LogFunc forwards a guest message to the host.
type LogFunc func(level uint32, msg string)

// Guest holds the state behind the guest exports: a pinned Go heap that
// owns every block handed to the host.
type Guest struct {
	heap *bridge.GoHeap
	log  LogFunc
}

// NewGuest creates a guest with an empty heap.
func NewGuest(log LogFunc) *Guest {
	if log == nil {
		log = func(uint32, string) {}
	}
	return &Guest{heap: bridge.NewGoHeap(), log: log}
}

func (g *Guest) Constant() int32 {
	return bridge.Constant()
}

func (g *Guest) Sum(a, b int32) int32 {
	return bridge.Sum(a, b)
}

func (g *Guest) IncrementArray(addr, count uintptr) {
	bridge.IncrementArray(unsafe.Pointer(addr), count)
}

func (g *Guest) IncrementPoint(addr uintptr) {
	bridge.IncrementPoint(bridge.PointAt(unsafe.Pointer(addr)))
}

// Allocate pins a new block and returns its address.
func (g *Guest) Allocate(size uintptr) uintptr {
	return uintptr(bridge.MustAllocate(g.heap, size))
}

// Deallocate unpins a block. Unlike the C heap, the guest knows every live
// block, so an unknown address or a wrong size is reported to the host and
// the call is ignored. A zero address is a no-op.
func (g *Guest) Deallocate(addr, size uintptr) {
	if addr == 0 {
		return
	}
	p := unsafe.Pointer(addr)
	got, ok := g.heap.Size(p)
	if !ok {
		g.log(abi.LogWarn, fmt.Sprintf("deallocate: unknown address %#x", addr))
		return
	}
	if want := max(size, 1); got != want {
		g.log(abi.LogWarn, fmt.Sprintf("deallocate: block at %#x has %d bytes, got %d", addr, got, size))
		return
	}
	g.heap.Free(p)
}

// Live returns the number of blocks the host has not released yet.
func (g *Guest) Live() int {
	return g.heap.Live()
}
