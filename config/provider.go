package config

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
)

// ProvideLoaderOptions options for ProvideLoader
type ProvideLoaderOptions struct {
	ConfigPath   string
	ConfigPrefix string
	Flags        *pflag.FlagSet
	FlagKeys     map[string]string
}

// ProvideLoader returns a samber/do provider for *Loader
//
//	do.Provide(injector, config.ProvideLoader(config.ProvideLoaderOptions{
//	    ConfigPath:   "./configs",
//	    ConfigPrefix: "HOOKS",
//	}))
//	loader := do.MustInvoke[*config.Loader](injector)
func ProvideLoader(opts ProvideLoaderOptions) func(do.Injector) (*Loader, error) {
	return func(i do.Injector) (*Loader, error) {
		loader, err := NewLoaderBuilder().
			WithConfigPath(opts.ConfigPath).
			WithEnvPrefix(opts.ConfigPrefix).
			WithFlags(opts.Flags, opts.FlagKeys).
			Build()
		if err != nil {
			return nil, fmt.Errorf("config loader build failed: %w", err)
		}
		return loader, nil
	}
}

// ProvideLoaderValue registers an already built loader (tests)
func ProvideLoaderValue(loader *Loader) func(do.Injector) (*Loader, error) {
	return func(i do.Injector) (*Loader, error) {
		return loader, nil
	}
}
