package guest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/internal/wasm"
)

// Loader handles loading guests from disk.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new guest loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "guest-loader")),
	}
}

// LoadGuest loads a single guest from a directory holding manifest.yaml.
func (l *Loader) LoadGuest(ctx context.Context, dir string) (*Guest, error) {
	l.logger.Debug("Loading guest", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	return l.load(ctx, manifest)
}

// LoadFile loads a bare Wasm file that uses the canonical export names.
// The guest is named after the file without its extension.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Guest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve guest path '%s': %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, &WasmNotFoundError{WasmFile: path}
	}

	manifest := &Manifest{
		Name:    FileGuestName(abs),
		Version: "unversioned",
		Wasm:    WasmConfig{File: filepath.Base(abs)},
		dir:     filepath.Dir(abs),
	}

	return l.load(ctx, manifest)
}

// FileGuestName returns the name LoadFile registers a bare Wasm file under.
func FileGuestName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l *Loader) load(ctx context.Context, manifest *Manifest) (*Guest, error) {
	l.logger.Info("Loading guest",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Int("export_aliases", len(manifest.Exports)),
	)

	// Cached under the guest name so instances can be created by name.
	compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, manifest.Name, manifest.WasmPath())
	if err != nil {
		return nil, &GuestLoadError{
			GuestName: manifest.Name,
			WasmPath:  manifest.WasmPath(),
			Err:       err,
		}
	}

	guest := &Guest{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Guest loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return guest, nil
}

// DiscoverGuests scans directories for guests.
func (l *Loader) DiscoverGuests(ctx context.Context, paths []string) ([]*Guest, error) {
	var guests []*Guest
	var errs []error

	for _, basePath := range paths {
		l.logger.Debug("Scanning guest directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Guest path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			guestDir := filepath.Join(basePath, entry.Name())

			guest, err := l.LoadGuest(ctx, guestDir)
			if err != nil {
				l.logger.Error("Failed to load guest",
					zap.String("dir", guestDir),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}

			guests = append(guests, guest)
		}
	}

	if len(guests) > 0 && len(errs) > 0 {
		l.logger.Warn("Some guests failed to load",
			zap.Int("loaded", len(guests)),
			zap.Int("failed", len(errs)),
		)
	}

	if len(guests) == 0 {
		return nil, &NoGuestsFoundError{Paths: paths}
	}

	return guests, nil
}
