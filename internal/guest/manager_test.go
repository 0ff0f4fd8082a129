package guest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/internal/config"
	"github.com/woxQAQ/native-bridge/internal/wasm"
	"github.com/woxQAQ/native-bridge/internal/wasm/wasmtest"
	"github.com/woxQAQ/native-bridge/pkg/abi"
)

func newTestManager(t *testing.T, paths ...string) *Manager {
	t.Helper()

	logger := zap.NewNop()
	runtime := newTestRuntime(t)
	cfg := &config.Config{GuestPaths: paths}
	return NewManager(cfg, runtime, wasm.NewHostFunctions(logger), logger)
}

func TestManager_NewManager(t *testing.T) {
	manager := newTestManager(t, t.TempDir())

	if manager.IsLoaded() {
		t.Error("Manager should not be loaded initially")
	}
	if len(manager.Guests()) != 0 {
		t.Error("Manager should start without guests")
	}
}

func TestManager_GetGuest_NotFound(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.GetGuest("nonexistent")
	var target *GuestNotFoundError
	if !errors.As(err, &target) {
		t.Fatalf("expected GuestNotFoundError, got %T: %v", err, err)
	}

	_, err = manager.Instantiate(context.Background(), "nonexistent")
	if !errors.As(err, &target) {
		t.Fatalf("expected GuestNotFoundError, got %T: %v", err, err)
	}
}

func TestManager_LoadAll_Empty(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, t.TempDir())

	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() should tolerate empty paths: %v", err)
	}
	if !manager.IsLoaded() {
		t.Error("Manager should be loaded")
	}
	if err := manager.LoadAll(ctx); err == nil {
		t.Error("second LoadAll() should fail")
	}
}

func TestManager_InstantiateAliasedGuest(t *testing.T) {
	ctx := context.Background()

	root := t.TempDir()
	writeSimpleGuest(t, root, "plain")
	writeGuest(t, root, "aliased", aliasManifest, "aliased.wasm",
		wasmtest.Module{Names: aliasNames}.Bytes())

	manager := newTestManager(t, root)
	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	guests := manager.Guests()
	if len(guests) != 2 || guests[0].Name() != "aliased" || guests[1].Name() != "plain" {
		t.Fatalf("unexpected guests: %v", guests)
	}

	for _, guest := range guests {
		b, err := manager.Instantiate(ctx, guest.Name())
		if err != nil {
			t.Fatalf("Instantiate(%s) failed: %v", guest.Name(), err)
		}

		got, err := b.Sum(ctx, 2, 2)
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}
		if got != 4 {
			t.Errorf("%s: sum(2, 2) = %d, want 4", guest.Name(), got)
		}

		p, err := b.IncrementPointValue(ctx, abi.Point{X: 0, Y: 1})
		if err != nil {
			t.Fatalf("IncrementPointValue failed: %v", err)
		}
		if p != (abi.Point{X: 1, Y: 2}) {
			t.Errorf("%s: point = %+v, want {1 2}", guest.Name(), p)
		}

		if err := b.Close(ctx); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}
}

func TestManager_InstantiateMissingAlias(t *testing.T) {
	ctx := context.Background()

	root := t.TempDir()
	// Manifest declares aliases the module does not export.
	writeGuest(t, root, "aliased", aliasManifest, "aliased.wasm", wasmtest.Module{}.Bytes())

	manager := newTestManager(t, root)
	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	_, err := manager.Instantiate(ctx, "aliased")
	var target *wasm.FunctionNotFoundError
	if !errors.As(err, &target) {
		t.Fatalf("expected FunctionNotFoundError, got %T: %v", err, err)
	}
	if target.FunctionName != "simple" {
		t.Errorf("expected missing function 'simple', got '%s'", target.FunctionName)
	}
}

func TestManager_LoadFile(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	path := filepath.Join(t.TempDir(), "extra.wasm")
	if err := os.WriteFile(path, wasmtest.Module{}.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if _, err := manager.GetGuest("extra"); err != nil {
		t.Fatalf("GetGuest() failed: %v", err)
	}

	_, err := manager.LoadFile(ctx, path)
	var dup *GuestAlreadyRegisteredError
	if !errors.As(err, &dup) {
		t.Fatalf("expected GuestAlreadyRegisteredError, got %T: %v", err, err)
	}
}

func TestManager_Shutdown(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}
}

func TestManager_DuplicateNameKeepsRegisteredModule(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "dup.wasm")
	if err := os.WriteFile(path, wasmtest.Module{}.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	// A guest directory claiming the same name with a broken sum.
	root := t.TempDir()
	writeGuest(t, root, "other", simpleManifest("dup"), "dup.wasm", wasmtest.Module{BrokenSum: true}.Bytes())

	manager := newTestManager(t, root)
	if _, err := manager.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	guests := manager.Guests()
	if len(guests) != 1 || guests[0].Manifest.WasmPath() != path {
		t.Fatalf("the first guest should keep the name, got %v", guests)
	}

	b, err := manager.Instantiate(ctx, "dup")
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer b.Close(ctx)

	got, err := b.Sum(ctx, 2, 2)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if got != 4 {
		t.Errorf("sum(2, 2) = %d, want 4 from the registered module", got)
	}

	// Later loads compare against the registered module again.
	compiled, ok := manager.runtime.GetCompiledModule("dup")
	if !ok || compiled != guests[0].Compiled {
		t.Error("compiled-module cache should hold the registered guest's module")
	}
}

func TestManager_LoadFileDuplicateSkipsCompile(t *testing.T) {
	ctx := context.Background()

	root := t.TempDir()
	writeSimpleGuest(t, root, "taken")

	manager := newTestManager(t, root)
	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	registered, _ := manager.GetGuest("taken")

	// Not valid Wasm: compiling it would fail with GuestLoadError.
	path := filepath.Join(t.TempDir(), "taken.wasm")
	if err := os.WriteFile(path, []byte("not wasm"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := manager.LoadFile(ctx, path)
	var dup *GuestAlreadyRegisteredError
	if !errors.As(err, &dup) {
		t.Fatalf("expected GuestAlreadyRegisteredError, got %T: %v", err, err)
	}
	if dup.Registered != registered.Manifest.WasmPath() || dup.Rejected != path {
		t.Errorf("unexpected modules in error: %v", err)
	}
}
