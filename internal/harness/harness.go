// Package harness runs the bridge conformance checks against every
// registered guest.
package harness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/internal/config"
	"github.com/woxQAQ/native-bridge/internal/guest"
	"github.com/woxQAQ/native-bridge/internal/wasm"
	"github.com/woxQAQ/native-bridge/pkg/abi"
)

// Harness owns the Wasm runtime and the guest manager.
type Harness struct {
	cfg         *config.Config
	logger      *zap.Logger
	wasmRuntime *wasm.Runtime
	manager     *guest.Manager
}

// New creates the Wasm runtime described by cfg and a guest manager on top of it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Harness, error) {
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:      cfg.Wasm.MemoryPages,
		DebugEnabled:     cfg.Wasm.Debug,
		CacheDir:         cfg.Wasm.CacheDir,
		MaxInstances:     cfg.Wasm.MaxInstances,
		ExecutionTimeout: time.Duration(cfg.Wasm.ExecutionTimeout) * time.Second,
		StartFunctions:   cfg.Wasm.StartFunctions,
	}

	wasmRuntime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	logger.Info("Harness initialized",
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
		zap.Int("cycles", cfg.Harness.Cycles),
	)

	return &Harness{
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "harness")),
		wasmRuntime: wasmRuntime,
		manager:     guest.NewManager(cfg, wasmRuntime, wasm.NewHostFunctions(logger), logger),
	}, nil
}

// Manager returns the guest manager, e.g. to load extra Wasm files.
func (h *Harness) Manager() *guest.Manager {
	return h.manager
}

// Check is the outcome of one named property.
type Check struct {
	Name string
	Err  error
}

// Passed reports whether the check succeeded.
func (c Check) Passed() bool {
	return c.Err == nil
}

// GuestReport holds the checks run against one guest.
type GuestReport struct {
	Guest  string
	Checks []Check
}

// Failed returns the number of failed checks.
func (r GuestReport) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.Passed() {
			n++
		}
	}
	return n
}

// Report is the result of a harness run.
type Report struct {
	Guests []GuestReport
}

// Failed returns the number of failed checks across all guests.
func (r *Report) Failed() int {
	n := 0
	for _, g := range r.Guests {
		n += g.Failed()
	}
	return n
}

// Passed reports whether at least one guest ran and every check passed.
func (r *Report) Passed() bool {
	return len(r.Guests) > 0 && r.Failed() == 0
}

type checkFunc func(ctx context.Context, b *wasm.Bridge) error

type namedCheck struct {
	name string
	run  checkFunc
}

// Run checks every registered guest on a fresh instance each.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	if !h.manager.IsLoaded() {
		if err := h.manager.LoadAll(ctx); err != nil {
			return nil, err
		}
	}

	report := &Report{}
	for _, g := range h.manager.Guests() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Guests = append(report.Guests, h.runGuest(ctx, g.Name()))
	}
	return report, nil
}

func (h *Harness) runGuest(ctx context.Context, name string) GuestReport {
	logger := h.logger.With(zap.String("guest", name))
	report := GuestReport{Guest: name}

	b, err := h.manager.Instantiate(ctx, name)
	if err != nil {
		logger.Error("Failed to instantiate guest", zap.Error(err))
		report.Checks = append(report.Checks, Check{Name: "instantiate", Err: err})
		return report
	}
	defer func() {
		if err := b.Close(ctx); err != nil {
			logger.Warn("Failed to close instance", zap.Error(err))
		}
	}()

	for _, c := range h.checks() {
		err := c.run(ctx, b)
		if err != nil {
			logger.Warn("Check failed", zap.String("check", c.name), zap.Error(err))
		} else {
			logger.Debug("Check passed", zap.String("check", c.name))
		}
		report.Checks = append(report.Checks, Check{Name: c.name, Err: err})
	}

	logger.Info("Guest checked",
		zap.Int("checks", len(report.Checks)),
		zap.Int("failed", report.Failed()),
	)
	return report
}

func (h *Harness) checks() []namedCheck {
	return []namedCheck{
		{"constant", checkConstant},
		{"sum", checkSum},
		{"sum_wraps", checkSumWraps},
		{"increment_array", checkIncrementArray},
		{"increment_array_empty", checkIncrementArrayEmpty},
		{"increment_point", checkIncrementPoint},
		{"round_trip", checkRoundTrip},
		{"allocation_cycles", h.checkAllocationCycles},
	}
}

func checkConstant(ctx context.Context, b *wasm.Bridge) error {
	got, err := b.Constant(ctx)
	if err != nil {
		return err
	}
	if got != abi.ConstantValue {
		return fmt.Errorf("constant() = %d, want %d", got, abi.ConstantValue)
	}
	return nil
}

func checkSum(ctx context.Context, b *wasm.Bridge) error {
	got, err := b.Sum(ctx, 2, 2)
	if err != nil {
		return err
	}
	if got != 4 {
		return fmt.Errorf("sum(2, 2) = %d, want 4", got)
	}
	return nil
}

func checkSumWraps(ctx context.Context, b *wasm.Bridge) error {
	got, err := b.Sum(ctx, math.MaxInt32, 1)
	if err != nil {
		return err
	}
	if got != math.MinInt32 {
		return fmt.Errorf("sum(MaxInt32, 1) = %d, want %d", got, int32(math.MinInt32))
	}
	return nil
}

func checkIncrementArray(ctx context.Context, b *wasm.Bridge) error {
	got, err := b.IncrementInts(ctx, []int32{1, 2, 3})
	if err != nil {
		return err
	}
	if want := []int32{2, 3, 4}; !slices.Equal(got, want) {
		return fmt.Errorf("increment_array([1 2 3]) = %v, want %v", got, want)
	}
	return nil
}

// A zero count must not touch memory, so any address will do.
func checkIncrementArrayEmpty(ctx context.Context, b *wasm.Bridge) error {
	return b.IncrementArray(ctx, 0, 0)
}

func checkIncrementPoint(ctx context.Context, b *wasm.Bridge) error {
	got, err := b.IncrementPointValue(ctx, abi.Point{X: 0, Y: 1})
	if err != nil {
		return err
	}
	if want := (abi.Point{X: 1, Y: 2}); got != want {
		return fmt.Errorf("increment_point({0 1}) = %+v, want %+v", got, want)
	}
	return nil
}

func checkRoundTrip(ctx context.Context, b *wasm.Bridge) error {
	want := []int32{1, 2, 3}
	got, err := b.RoundTrip(ctx, want)
	if err != nil {
		return err
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("round trip = %v, want %v", got, want)
	}
	return nil
}

// checkAllocationCycles keeps one block live while allocating, writing and
// releasing others, then verifies the live block is intact.
func (h *Harness) checkAllocationCycles(ctx context.Context, b *wasm.Bridge) (err error) {
	live := abi.Point{X: 7, Y: 9}
	livePtr, err := b.Allocate(ctx, abi.PointSize)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, b.Deallocate(ctx, livePtr, abi.PointSize))
	}()

	if err := b.Memory().WritePoint(livePtr, live); err != nil {
		return err
	}

	for i := 0; i < h.cfg.Harness.Cycles; i++ {
		values := []int32{int32(i), -int32(i), math.MaxInt32}
		got, err := b.RoundTrip(ctx, values)
		if err != nil {
			return fmt.Errorf("cycle %d: %w", i, err)
		}
		if !slices.Equal(got, values) {
			return fmt.Errorf("cycle %d: read %v, want %v", i, got, values)
		}
	}

	got, err := b.Memory().ReadPoint(livePtr)
	if err != nil {
		return err
	}
	if got != live {
		return fmt.Errorf("live block changed to %+v, want %+v", got, live)
	}
	return nil
}

// Close shuts down the guest manager and the runtime.
func (h *Harness) Close(ctx context.Context) error {
	h.logger.Info("Shutting down harness")

	if err := h.manager.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown guest manager", zap.Error(err))
		return err
	}

	h.logger.Info("Harness shutdown complete")
	return nil
}
