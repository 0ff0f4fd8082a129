// Package guest discovers, registers and instantiates Wasm modules that
// implement the native bridge exports.
package guest

import (
	"time"

	"github.com/woxQAQ/native-bridge/internal/wasm"
)

// Guest represents a loaded guest with its manifest and compiled Wasm module.
type Guest struct {
	// Manifest is the parsed guest metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the guest was loaded
	LoadedAt time.Time
}

// Name returns the guest name.
func (g *Guest) Name() string {
	return g.Manifest.Name
}

// Version returns the guest version.
func (g *Guest) Version() string {
	return g.Manifest.Version
}

// ExportNames returns the export alias table of the guest.
func (g *Guest) ExportNames() wasm.ExportNames {
	return g.Manifest.ExportNames()
}
