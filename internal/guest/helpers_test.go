package guest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/internal/wasm"
	"github.com/woxQAQ/native-bridge/internal/wasm/wasmtest"
)

// aliasManifest maps the canonical exports to the names used by
// Rust-style guests.
const aliasManifest = `name: aliased
version: 0.1.0
description: guest with renamed exports
wasm:
  file: aliased.wasm
exports:
  constant: simple
  sum: add
  increment_array: array_add
  increment_point: struct_add
  allocate: memalloc
  deallocate: memfree
`

var aliasNames = map[string]string{
	"constant":        "simple",
	"sum":             "add",
	"increment_array": "array_add",
	"increment_point": "struct_add",
	"allocate":        "memalloc",
	"deallocate":      "memfree",
}

// writeGuest creates root/dir with a manifest and, when module is non-nil,
// the Wasm file it references.
func writeGuest(t *testing.T, root, dir, manifest, wasmFile string, module []byte) string {
	t.Helper()

	guestDir := filepath.Join(root, dir)
	if err := os.MkdirAll(guestDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(guestDir, ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	if module != nil {
		if err := os.WriteFile(filepath.Join(guestDir, wasmFile), module, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return guestDir
}

// simpleManifest returns a manifest for a guest using canonical export names.
func simpleManifest(name string) string {
	return "name: " + name + "\nversion: 1.0.0\nwasm:\n  file: " + name + ".wasm\n"
}

func writeSimpleGuest(t *testing.T, root, name string) string {
	t.Helper()
	return writeGuest(t, root, name, simpleManifest(name), name+".wasm", wasmtest.Module{}.Bytes())
}

func newTestRuntime(t *testing.T) *wasm.Runtime {
	t.Helper()

	runtime, err := wasm.NewRuntime(context.Background(), zap.NewNop(), wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	t.Cleanup(func() { runtime.Close(context.Background()) })
	return runtime
}
