package guest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/native-bridge/internal/wasm"
	"github.com/woxQAQ/native-bridge/pkg/abi"
)

// ManifestFile is the manifest name inside a guest directory.
const ManifestFile = "manifest.yaml"

// Manifest represents the guest manifest.yaml structure.
type Manifest struct {
	Name        string     `yaml:"name"`
	Version     string     `yaml:"version"`
	Description string     `yaml:"description"`
	Wasm        WasmConfig `yaml:"wasm"`

	// Exports maps canonical export names to the names the module uses,
	// e.g. sum: add. Missing entries keep the canonical name.
	Exports map[string]string `yaml:"exports"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration.
type WasmConfig struct {
	File string `yaml:"file"`
	// Start overrides the runtime's start functions for this guest.
	Start []string `yaml:"start"`
}

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: "version is required",
		}
	}

	if m.Wasm.File == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: "wasm.file is required",
		}
	}

	// Sorted so the first reported problem is stable.
	keys := make([]string, 0, len(m.Exports))
	for k := range m.Exports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, export := range keys {
		if !abi.IsExport(export) {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "exports",
				Message: fmt.Sprintf("unknown export: %s (must be one of: %v)", export, abi.Exports),
			}
		}
		if m.Exports[export] == "" {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "exports." + export,
				Message: "alias must not be empty",
			}
		}
	}

	if _, err := os.Stat(m.WasmPath()); os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}

	return nil
}

// ExportNames returns the export alias table for instantiation.
func (m *Manifest) ExportNames() wasm.ExportNames {
	names := make(wasm.ExportNames, len(m.Exports))
	for k, v := range m.Exports {
		names[k] = v
	}
	return names
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// WasmPath returns the path to the Wasm file.
func (m *Manifest) WasmPath() string {
	if filepath.IsAbs(m.Wasm.File) {
		return m.Wasm.File
	}
	return filepath.Join(m.dir, m.Wasm.File)
}
