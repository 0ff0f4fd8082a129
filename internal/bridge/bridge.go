// Package bridge implements the native bridge operations over raw memory.
//
// Every operation is stateless and synchronous. Functions taking a raw
// address perform only the checks that are cheap at the boundary (nil
// address, zero count); the rest of the contract belongs to the caller:
// the region must be valid, writable, aligned and not accessed concurrently
// for the duration of the call.
//
// The package does not use cgo so it can be linked into the wasm guest as
// well as the c-shared library. The C heap lives in internal/cmem.
package bridge

import (
	"unsafe"

	"github.com/woxQAQ/native-bridge/pkg/abi"
)

// Constant returns the fixed sentinel value.
func Constant() int32 {
	return abi.ConstantValue
}

// Sum returns a+b with two's-complement wraparound.
func Sum(a, b int32) int32 {
	return a + b
}

// Int32View converts a raw (address, count) pair into a bounded slice.
// A nil address or zero count yields a nil slice.
// The returned slice aliases caller memory; it must not outlive the call.
func Int32View(p unsafe.Pointer, count uintptr) []int32 {
	if p == nil || count == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(p), count)
}

// IncrementArray adds one to each of count int32 values starting at p.
func IncrementArray(p unsafe.Pointer, count uintptr) {
	IncrementInts(Int32View(p, count))
}

// IncrementInts adds one to every element of s in place.
func IncrementInts(s []int32) {
	for i := range s {
		s[i]++
	}
}

// IncrementPoint adds one to both fields of the point at p.
func IncrementPoint(p *abi.Point) {
	if p == nil {
		return
	}
	p.X++
	p.Y++
}

// PointAt reinterprets a raw address as a Point.
func PointAt(p unsafe.Pointer) *abi.Point {
	return (*abi.Point)(p)
}
