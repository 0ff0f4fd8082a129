// Command nativebridge is built as a C shared library:
//
//	go build -buildmode=c-shared -o libnativebridge.so ./cmd/nativebridge
//
// cgo writes libnativebridge.h next to the library. Addresses cross the
// boundary as void* and sizes as GoUintptr (size_t wide).
//
// The plain allocate/deallocate pair follows the caller-enforced contract:
// a byte count above the maximum layout size aborts the process, allocator
// exhaustion returns NULL, and every other misuse is undefined behavior.
// allocate_checked/deallocate_checked keep the size in a block header and
// report misuse as a negative status instead.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"os"
	"unsafe"

	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/internal/bridge"
	"github.com/woxQAQ/native-bridge/internal/cmem"
	"github.com/woxQAQ/native-bridge/internal/config"
	"github.com/woxQAQ/native-bridge/internal/logging"
)

var (
	heap    bridge.Heap = cmem.Heap{}
	tracked             = bridge.NewTracked(heap)
	logger              = zap.NewNop()
)

func init() {
	cfg, err := config.Load(os.Getenv(config.EnvConfigFile))
	if err != nil {
		// The host process owns stderr; stay quiet rather than fail to load.
		return
	}
	logger = logging.NewOrNop(cfg.LogLevel).With(zap.String("component", "native-bridge"))
}

//export constant
func constant() int32 {
	return bridge.Constant()
}

//export sum
func sum(a, b int32) int32 {
	return bridge.Sum(a, b)
}

//export increment_array
func increment_array(ptr unsafe.Pointer, count uintptr) {
	bridge.IncrementArray(ptr, count)
}

//export increment_point
func increment_point(ptr unsafe.Pointer) {
	bridge.IncrementPoint(bridge.PointAt(ptr))
}

//export allocate
func allocate(size uintptr) unsafe.Pointer {
	if size > bridge.MaxLayoutSize {
		logger.Error("Allocation exceeds maximum layout size, aborting",
			zap.Uintptr("size", size),
		)
	}
	return bridge.MustAllocate(heap, size)
}

//export deallocate
func deallocate(ptr unsafe.Pointer, size uintptr) {
	bridge.MustDeallocate(heap, ptr, size)
}

//export allocate_checked
func allocate_checked(size uintptr) unsafe.Pointer {
	p, err := tracked.Allocate(size)
	if err != nil {
		logger.Warn("Checked allocation failed",
			zap.Uintptr("size", size),
			zap.Error(err),
		)
		return nil
	}
	return p
}

//export deallocate_checked
func deallocate_checked(ptr unsafe.Pointer, size uintptr) int32 {
	err := tracked.Deallocate(ptr, size)
	if err != nil {
		logger.Warn("Checked deallocation rejected",
			zap.Uintptr("ptr", uintptr(ptr)),
			zap.Uintptr("size", size),
			zap.Error(err),
		)
	}
	return bridge.StatusOf(err).Code()
}

func main() {}
