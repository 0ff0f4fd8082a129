package guest

import (
	"fmt"
	"strings"
)

// ManifestNotFoundError occurs when a guest directory has no readable manifest.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("guest manifest %s is missing or unreadable: %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when a manifest is not valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("guest manifest %s is not valid YAML: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError reports the first invalid field of a manifest.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	return fmt.Sprintf("guest manifest %s: %s: %s", e.Path, e.Field, e.Message)
}

// WasmNotFoundError occurs when a guest module file does not exist.
// ManifestPath is empty for bare files passed on the command line.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	if e.ManifestPath == "" {
		return fmt.Sprintf("guest module %s does not exist", e.WasmFile)
	}
	return fmt.Sprintf("guest module %s (wasm.file in %s) does not exist", e.WasmFile, e.ManifestPath)
}

// GuestLoadError occurs when a guest module cannot be read or compiled.
type GuestLoadError struct {
	GuestName string
	WasmPath  string
	Err       error
}

func (e *GuestLoadError) Error() string {
	return fmt.Sprintf("guest %q: cannot load %s: %v", e.GuestName, e.WasmPath, e.Err)
}

func (e *GuestLoadError) Unwrap() error {
	return e.Err
}

// GuestNotFoundError occurs when no guest of that name is registered.
type GuestNotFoundError struct {
	GuestName string
}

func (e *GuestNotFoundError) Error() string {
	return fmt.Sprintf("no guest named %q is registered", e.GuestName)
}

// GuestAlreadyRegisteredError occurs when a second guest claims a registered name.
type GuestAlreadyRegisteredError struct {
	GuestName string
	// Module of the guest that keeps the name.
	Registered string
	// Module of the guest that was turned away.
	Rejected string
}

func (e *GuestAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("guest %q is already registered from %s; %s was not loaded",
		e.GuestName, e.Registered, e.Rejected)
}

// NoGuestsFoundError occurs when the guest paths hold no loadable guest.
type NoGuestsFoundError struct {
	Paths []string
}

func (e *NoGuestsFoundError) Error() string {
	return fmt.Sprintf("no loadable guests under %s", strings.Join(e.Paths, ", "))
}
