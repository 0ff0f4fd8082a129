package guest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woxQAQ/native-bridge/internal/wasm/wasmtest"
	"github.com/woxQAQ/native-bridge/pkg/abi"
)

func TestParseManifest_Valid(t *testing.T) {
	dir := writeGuest(t, t.TempDir(), "aliased", aliasManifest, "aliased.wasm", wasmtest.Module{}.Bytes())

	manifest, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	if manifest.Name != "aliased" {
		t.Errorf("expected Name 'aliased', got '%s'", manifest.Name)
	}

	if manifest.Version != "0.1.0" {
		t.Errorf("expected Version '0.1.0', got '%s'", manifest.Version)
	}

	if manifest.Wasm.File != "aliased.wasm" {
		t.Errorf("expected Wasm.File 'aliased.wasm', got '%s'", manifest.Wasm.File)
	}

	if manifest.WasmPath() != filepath.Join(dir, "aliased.wasm") {
		t.Errorf("unexpected WasmPath '%s'", manifest.WasmPath())
	}

	names := manifest.ExportNames()
	for export, alias := range aliasNames {
		if got := names.Resolve(export); got != alias {
			t.Errorf("Resolve(%s) = %s, want %s", export, got, alias)
		}
	}
}

func TestParseManifest_DefaultExportNames(t *testing.T) {
	dir := writeSimpleGuest(t, t.TempDir(), "plain")

	manifest, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	names := manifest.ExportNames()
	for _, export := range abi.Exports {
		if got := names.Resolve(export); got != export {
			t.Errorf("Resolve(%s) = %s, want canonical name", export, got)
		}
	}
	if manifest.Wasm.Start != nil {
		t.Errorf("expected no start override, got %v", manifest.Wasm.Start)
	}
}

func TestParseManifest_AbsoluteWasmPath(t *testing.T) {
	root := t.TempDir()
	wasmDir := writeSimpleGuest(t, root, "shared")
	wasmFile := filepath.Join(wasmDir, "shared.wasm")

	dir := writeGuest(t, root, "pointer", "name: pointer\nversion: 1.0.0\nwasm:\n  file: "+wasmFile+"\n", "", nil)

	manifest, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}
	if manifest.WasmPath() != wasmFile {
		t.Errorf("expected WasmPath '%s', got '%s'", wasmFile, manifest.WasmPath())
	}
}

func TestParseManifest_Errors(t *testing.T) {
	module := wasmtest.Module{}.Bytes()

	tests := []struct {
		name     string
		manifest string
		module   []byte
		field    string
		check    func(error) bool
	}{
		{
			name:     "missing name",
			manifest: "version: 1.0.0\nwasm:\n  file: g.wasm\n",
			module:   module,
			field:    "name",
		},
		{
			name:     "missing version",
			manifest: "name: g\nwasm:\n  file: g.wasm\n",
			module:   module,
			field:    "version",
		},
		{
			name:     "missing wasm file",
			manifest: "name: g\nversion: 1.0.0\n",
			module:   module,
			field:    "wasm.file",
		},
		{
			name:     "unknown export",
			manifest: "name: g\nversion: 1.0.0\nwasm:\n  file: g.wasm\nexports:\n  multiply: mul\n",
			module:   module,
			field:    "exports",
		},
		{
			name:     "empty alias",
			manifest: "name: g\nversion: 1.0.0\nwasm:\n  file: g.wasm\nexports:\n  sum: \"\"\n",
			module:   module,
			field:    "exports.sum",
		},
		{
			name:     "wasm file missing on disk",
			manifest: "name: g\nversion: 1.0.0\nwasm:\n  file: g.wasm\n",
			check: func(err error) bool {
				var target *WasmNotFoundError
				return errors.As(err, &target)
			},
		},
		{
			name:     "invalid yaml",
			manifest: "name: [unterminated\n",
			module:   module,
			check: func(err error) bool {
				var target *ManifestParseError
				return errors.As(err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeGuest(t, t.TempDir(), "g", tt.manifest, "g.wasm", tt.module)

			_, err := ParseManifest(dir)
			if err == nil {
				t.Fatal("ParseManifest() should fail")
			}

			if tt.check != nil {
				if !tt.check(err) {
					t.Errorf("unexpected error type: %T: %v", err, err)
				}
				return
			}

			var validation *ManifestValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ManifestValidationError, got %T: %v", err, err)
			}
			if validation.Field != tt.field {
				t.Errorf("expected field '%s', got '%s'", tt.field, validation.Field)
			}
		})
	}
}

func TestParseManifest_NotFound(t *testing.T) {
	_, err := ParseManifest(t.TempDir())

	var target *ManifestNotFoundError
	if !errors.As(err, &target) {
		t.Fatalf("expected ManifestNotFoundError, got %T: %v", err, err)
	}
	if !strings.HasSuffix(target.Path, ManifestFile) {
		t.Errorf("unexpected path '%s'", target.Path)
	}
}
