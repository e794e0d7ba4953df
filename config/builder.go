package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// Source priorities
const (
	PriorityConfigFile = 10
	PriorityEnvFile    = 20
	PriorityEnv        = 50
	PriorityFlags      = 100
)

// LoaderBuilder assembles a Loader from the standard sources
type LoaderBuilder struct {
	configPath string
	envPrefix  string
	flags      *pflag.FlagSet
	flagKeys   map[string]string
}

// NewLoaderBuilder creates a loader builder
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{}
}

// WithConfigPath sets the directory holding config.yaml and <env>.yaml
func (b *LoaderBuilder) WithConfigPath(path string) *LoaderBuilder {
	b.configPath = path
	return b
}

// WithEnvPrefix enables PREFIX_SECTION_KEY environment variables
func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithFlags maps changed command line flags onto config keys
//
//	b.WithFlags(cmd.Flags(), map[string]string{"timeout": "hook.default_timeout"})
func (b *LoaderBuilder) WithFlags(flags *pflag.FlagSet, keys map[string]string) *LoaderBuilder {
	b.flags = flags
	b.flagKeys = keys
	return b
}

// Build creates the loader and loads it
// Order: config.yaml (10) < <env>.yaml (20) < env vars (50) < flags (100)
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	if b.configPath != "" {
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, "config.yaml"), PriorityConfigFile))
		if env := GetEnv(); env != "" {
			loader.AddSource(NewFileSource(filepath.Join(b.configPath, env+".yaml"), PriorityEnvFile))
		}
	}

	if b.envPrefix != "" {
		loader.AddSource(NewEnvSource(b.envPrefix, PriorityEnv))
	}

	if b.flags != nil {
		loader.AddSource(NewFlagSource(b.flags, b.flagKeys, PriorityFlags))
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// GetEnv returns APP_ENV, then ENV, then "dev"
func GetEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}
