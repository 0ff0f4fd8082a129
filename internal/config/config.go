package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. NATIVEBRIDGE_LOG_LEVEL.
const EnvPrefix = "NATIVEBRIDGE"

// EnvConfigFile names the environment variable the shared library reads
// its config file path from.
const EnvConfigFile = EnvPrefix + "_CONFIG"

type Config struct {
	LogLevel   string        `mapstructure:"log_level"`
	GuestPaths []string      `mapstructure:"guest_paths"`
	Wasm       WasmConfig    `mapstructure:"wasm"`
	Harness    HarnessConfig `mapstructure:"harness"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Log every guest call at debug level.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory. Empty keeps the cache in memory.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Guest call timeout (seconds). Zero disables the timeout.
	ExecutionTimeout int `mapstructure:"execution_timeout"`
	// Functions run after instantiation; missing ones are skipped.
	StartFunctions []string `mapstructure:"start_functions"`
}

// HarnessConfig tunes the conformance checks.
type HarnessConfig struct {
	// Allocate/deallocate cycles run around a live allocation.
	Cycles int `mapstructure:"cycles"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("guest_paths", []string{"./guests"})

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.execution_timeout", 30)
	v.SetDefault("wasm.start_functions", []string{"_initialize"})

	v.SetDefault("harness.cycles", 64)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
