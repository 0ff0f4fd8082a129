// Package wasm is the WebAssembly guest side of the native bridge.
//
// Built for GOOS=wasip1 it exports, via //go:wasmexport:
//
//	constant() int32
//	sum(a, b int32) int32
//	increment_array(ptr, count uint32)
//	increment_point(ptr uint32)
//	allocate(size uint32) uint32
//	deallocate(ptr, size uint32)
//
// and imports host.log_message(level, ptr, length uint32).
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a 32-bit
// linear memory model. All Wasm memory addresses are represented as 32-bit integers
// (addresses 0 to 4GB). This ensures compatibility with Wasm's memory architecture.
// See: https://github.com/golang/go/issues/59156
//
// The guest is a reactor, so hosts must run _initialize before calling exports:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o bridge.wasm ./cmd/bridge-wasm
package wasm
