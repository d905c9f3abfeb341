// Package config loads objbridge configuration files.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the top-level configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Registry RegistryConfig `yaml:"registry"`
	Wasm     WasmConfig     `yaml:"wasm"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Development bool   `yaml:"development"`
}

// RegistryConfig controls the handle registry.
type RegistryConfig struct {
	// MaxEntries caps live objects. 0 means unlimited.
	MaxEntries int `yaml:"max_entries" validate:"min=0"`
}

// WasmConfig controls the WebAssembly bridge.
type WasmConfig struct {
	ModuleName       string `yaml:"module_name" validate:"required"`
	MaxRequestSize   uint32 `yaml:"max_request_size" validate:"min=1"`
	MaxResponseSize  uint32 `yaml:"max_response_size"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" validate:"max=65536"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Wasm: WasmConfig{
			ModuleName:     "objbridge",
			MaxRequestSize: 1 << 20,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Logger builds the zap logger described by c.
func (c LogConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
