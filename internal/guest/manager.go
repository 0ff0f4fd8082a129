package guest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/internal/config"
	"github.com/woxQAQ/native-bridge/internal/wasm"
)

// Manager manages guest lifecycle.
type Manager struct {
	cfg         *config.Config
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new guest manager.
func NewManager(
	cfg *config.Config,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctionsImpl,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:         cfg,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, hostFuncs, logger),
		logger:      logger.With(zap.String("component", "guest-manager")),
	}
}

// LoadAll discovers and loads all guests from configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("guests already loaded")
	}

	m.logger.Info("Loading guests",
		zap.Strings("paths", m.cfg.GuestPaths),
	)

	guests, err := m.loader.DiscoverGuests(ctx, m.cfg.GuestPaths)
	if err != nil {
		var none *NoGuestsFoundError
		if errors.As(err, &none) {
			m.logger.Warn("No guests found in configured paths",
				zap.Strings("paths", m.cfg.GuestPaths),
			)
			m.loaded = true
			return nil
		}
		return err
	}

	for _, guest := range guests {
		if err := m.register(ctx, guest); err != nil {
			m.logger.Error("Failed to register guest",
				zap.String("name", guest.Name()),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("Guests loaded successfully",
		zap.Int("count", m.registry.Count()),
	)

	return nil
}

// LoadFile loads and registers a single Wasm file outside the guest paths.
// A name already taken is rejected before the file is compiled.
func (m *Manager) LoadFile(ctx context.Context, path string) (*Guest, error) {
	name := FileGuestName(path)
	if existing, ok := m.registry.Get(name); ok {
		return nil, &GuestAlreadyRegisteredError{
			GuestName:  name,
			Registered: existing.Manifest.WasmPath(),
			Rejected:   path,
		}
	}

	guest, err := m.loader.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := m.register(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

// register adds guest to the registry. A rejected duplicate has replaced the
// name's entry in the compiled-module cache, so the registered guest's module
// is put back and the rejected one is released.
func (m *Manager) register(ctx context.Context, guest *Guest) error {
	err := m.registry.Register(guest)
	if err == nil {
		return nil
	}

	if existing, ok := m.registry.Get(guest.Name()); ok && existing.Compiled != guest.Compiled {
		m.runtime.StoreCompiledModule(existing.Compiled)
		if closeErr := guest.Compiled.Module.Close(ctx); closeErr != nil {
			m.logger.Warn("Failed to release rejected guest module",
				zap.String("name", guest.Name()),
				zap.Error(closeErr),
			)
		}
	}
	return err
}

// GetGuest retrieves a guest by name.
func (m *Manager) GetGuest(name string) (*Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	guest, ok := m.registry.Get(name)
	if !ok {
		return nil, &GuestNotFoundError{GuestName: name}
	}

	return guest, nil
}

// Guests returns every registered guest sorted by name.
func (m *Manager) Guests() []*Guest {
	return m.registry.List()
}

// Instantiate creates a new instance of a guest and wraps it in a bridge client.
func (m *Manager) Instantiate(ctx context.Context, guestName string) (*wasm.Bridge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	guest, ok := m.registry.Get(guestName)
	if !ok {
		return nil, &GuestNotFoundError{GuestName: guestName}
	}

	instance, err := m.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName:     guest.Name(),
		Module:         guest.Compiled,
		Exports:        guest.ExportNames(),
		StartFunctions: guest.Manifest.Wasm.Start,
	})
	if err != nil {
		return nil, err
	}

	return wasm.NewBridge(instance, m.logger), nil
}

// Shutdown gracefully shuts down all guests.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down guest manager",
		zap.Int("guests", m.registry.Count()),
		zap.Int("active_instances", m.runtime.ActiveInstances()),
	)

	// Runtime close handles instance cleanup
	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("Guest manager shutdown complete")
	return nil
}

// IsLoaded returns whether guests have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
