package wasm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/pkg/abi"
)

// Bridge calls the native bridge exports of a guest instance.
// A Bridge is not safe for concurrent use; create one instance per goroutine.
type Bridge struct {
	instance *Instance
	memory   *Memory
	logger   *zap.Logger
	timeout  time.Duration
	debug    bool
}

// NewBridge wraps an instance whose exports were bound by InstanceManager.
func NewBridge(instance *Instance, logger *zap.Logger) *Bridge {
	cfg := instance.runtime.config
	return &Bridge{
		instance: instance,
		memory:   instance.Memory(),
		logger: logger.With(
			zap.String("component", "wasm-bridge"),
			zap.String("instance_id", instance.ID),
		),
		timeout: cfg.ExecutionTimeout,
		debug:   cfg.DebugEnabled,
	}
}

// Instance returns the underlying instance.
func (b *Bridge) Instance() *Instance {
	return b.instance
}

// Memory returns the guest memory helper.
func (b *Bridge) Memory() *Memory {
	return b.memory
}

// Close closes the underlying instance.
func (b *Bridge) Close(ctx context.Context) error {
	return b.instance.Close(ctx)
}

// Constant calls constant().
func (b *Bridge) Constant(ctx context.Context) (int32, error) {
	res, err := b.call(ctx, abi.ExportConstant, 1)
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

// Sum calls sum(x, y).
func (b *Bridge) Sum(ctx context.Context, x, y int32) (int32, error) {
	res, err := b.call(ctx, abi.ExportSum, 1, api.EncodeI32(x), api.EncodeI32(y))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

// IncrementArray calls increment_array(ptr, count) on guest memory.
func (b *Bridge) IncrementArray(ctx context.Context, ptr, count uint32) error {
	_, err := b.call(ctx, abi.ExportIncrementArray, 0, api.EncodeU32(ptr), api.EncodeU32(count))
	return err
}

// IncrementPoint calls increment_point(ptr) on guest memory.
func (b *Bridge) IncrementPoint(ctx context.Context, ptr uint32) error {
	_, err := b.call(ctx, abi.ExportIncrementPoint, 0, api.EncodeU32(ptr))
	return err
}

// Allocate calls allocate(size). A null result is reported as AllocationError.
func (b *Bridge) Allocate(ctx context.Context, size uint32) (uint32, error) {
	res, err := b.call(ctx, abi.ExportAllocate, 1, api.EncodeU32(size))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, &AllocationError{Size: size}
	}
	return ptr, nil
}

// Deallocate calls deallocate(ptr, size).
func (b *Bridge) Deallocate(ctx context.Context, ptr, size uint32) error {
	_, err := b.call(ctx, abi.ExportDeallocate, 0, api.EncodeU32(ptr), api.EncodeU32(size))
	return err
}

// IncrementInts copies values into guest memory, runs increment_array over
// them and returns the result.
func (b *Bridge) IncrementInts(ctx context.Context, values []int32) ([]int32, error) {
	var out []int32
	count := uint32(len(values))
	err := b.withBlock(ctx, count*abi.Int32Size, func(ptr uint32) error {
		if err := b.memory.WriteInt32s(ptr, values); err != nil {
			return err
		}
		if err := b.IncrementArray(ctx, ptr, count); err != nil {
			return err
		}
		var err error
		out, err = b.memory.ReadInt32s(ptr, count)
		return err
	})
	return out, err
}

// IncrementPointValue copies p into guest memory, runs increment_point and
// returns the result.
func (b *Bridge) IncrementPointValue(ctx context.Context, p abi.Point) (abi.Point, error) {
	var out abi.Point
	err := b.withBlock(ctx, abi.PointSize, func(ptr uint32) error {
		if err := b.memory.WritePoint(ptr, p); err != nil {
			return err
		}
		if err := b.IncrementPoint(ctx, ptr); err != nil {
			return err
		}
		var err error
		out, err = b.memory.ReadPoint(ptr)
		return err
	})
	return out, err
}

// RoundTrip allocates a guest block, writes values, reads them back and
// frees the block.
func (b *Bridge) RoundTrip(ctx context.Context, values []int32) ([]int32, error) {
	var out []int32
	count := uint32(len(values))
	err := b.withBlock(ctx, count*abi.Int32Size, func(ptr uint32) error {
		if err := b.memory.WriteInt32s(ptr, values); err != nil {
			return err
		}
		var err error
		out, err = b.memory.ReadInt32s(ptr, count)
		return err
	})
	return out, err
}

// withBlock runs fn with a freshly allocated guest block of size bytes and
// releases the block afterwards.
func (b *Bridge) withBlock(ctx context.Context, size uint32, fn func(ptr uint32) error) error {
	ptr, err := b.Allocate(ctx, size)
	if err != nil {
		return err
	}
	fnErr := fn(ptr)
	return errors.Join(fnErr, b.Deallocate(ctx, ptr, size))
}

// call invokes a bound export and checks the number of results.
func (b *Bridge) call(ctx context.Context, export string, results int, params ...uint64) ([]uint64, error) {
	fn, ok := b.instance.exports[export]
	if !ok {
		return nil, &FunctionNotFoundError{ModuleName: b.instance.Name, Export: export, FunctionName: export}
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if b.debug {
		b.logger.Debug("Calling guest export",
			zap.String("export", export),
			zap.Uint64s("params", params),
		)
	}

	res, err := fn.Call(ctx, params...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Duration: b.timeout}
		}
		return nil, &CallError{FunctionName: export, Err: err}
	}
	if len(res) != results {
		return nil, &CallError{
			FunctionName: export,
			Err:          fmt.Errorf("expected %d results, got %d", results, len(res)),
		}
	}

	return res, nil
}
