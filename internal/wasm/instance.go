package wasm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/pkg/abi"
)

// ExportNames maps canonical bridge export names to the names a guest
// actually exports. Missing entries resolve to the canonical name.
type ExportNames map[string]string

// Resolve returns the guest function name for a canonical export.
func (n ExportNames) Resolve(export string) string {
	if name, ok := n[export]; ok && name != "" {
		return name
	}
	return export
}

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, one is generated).
	InstanceID string

	// Export aliases for guests that do not use the canonical names.
	Exports ExportNames

	// Start functions for this instance; nil uses the runtime default.
	StartFunctions []string

	// Compiled module to instantiate. When nil, the module cached under
	// ModuleName is used.
	Module *CompiledModule
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// wazero module instance.
	module api.Module

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64

	// Bridge exports keyed by canonical name.
	exports map[string]api.Function

	runtime   *Runtime
	closeOnce sync.Once
}

// Instantiate creates a new instance from a compiled module.
// Every bridge export must be present, as well as an exported memory.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	if m.runtime.IsClosed() {
		return nil, ErrRuntimeClosed
	}

	compiled := config.Module
	if compiled == nil {
		var ok bool
		compiled, ok = m.runtime.GetCompiledModule(config.ModuleName)
		if !ok {
			return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
		}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	if err := m.runtime.reserveInstance(); err != nil {
		return nil, err
	}

	if err := m.runtime.ensureHostModule(ctx, m.hostFuncs); err != nil {
		m.runtime.releaseInstance()
		return nil, err
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	startFunctions := config.StartFunctions
	if startFunctions == nil {
		startFunctions = m.runtime.config.StartFunctions
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions(startFunctions...)

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		m.runtime.releaseInstance()
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	exports, err := bindExports(module, config.ModuleName, config.Exports)
	if err == nil && module.Memory() == nil {
		err = &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        errors.New("module does not export memory"),
		}
	}
	if err != nil {
		_ = module.Close(ctx)
		m.runtime.releaseInstance()
		return nil, err
	}

	instance := &Instance{
		module:    module,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		exports:   exports,
		runtime:   m.runtime,
	}

	m.runtime.storeInstance(instance)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(exports)),
	)

	return instance, nil
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	var err error
	i.closeOnce.Do(func() {
		i.runtime.deleteInstance(i.ID)
		err = i.module.Close(ctx)
	})
	return err
}

// Memory returns a helper over the instance's linear memory.
func (i *Instance) Memory() *Memory {
	return NewMemory(i.module)
}

// bindExports resolves every canonical bridge export in module.
func bindExports(module api.Module, moduleName string, names ExportNames) (map[string]api.Function, error) {
	exports := make(map[string]api.Function, len(abi.Exports))

	for _, export := range abi.Exports {
		name := names.Resolve(export)
		fn := module.ExportedFunction(name)
		if fn == nil {
			return nil, &FunctionNotFoundError{
				ModuleName:   moduleName,
				Export:       export,
				FunctionName: name,
			}
		}
		exports[export] = fn
	}

	return exports, nil
}

var instanceSeq atomic.Uint64

// generateInstanceID generates a unique instance ID.
func generateInstanceID() string {
	return fmt.Sprintf("inst-%d-%d", time.Now().UnixNano(), instanceSeq.Add(1))
}
