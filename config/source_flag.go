package config

import (
	"github.com/spf13/pflag"
)

// FlagSource exposes explicitly changed command line flags as config keys
// Flags left at their default never override file or env values
type FlagSource struct {
	flags    *pflag.FlagSet
	keys     map[string]string // flag name -> config key
	priority int
}

// NewFlagSource creates a flag source
func NewFlagSource(flags *pflag.FlagSet, keys map[string]string, priority int) *FlagSource {
	return &FlagSource{flags: flags, keys: keys, priority: priority}
}

// Name source name
func (s *FlagSource) Name() string {
	return "flags"
}

// Priority source priority
func (s *FlagSource) Priority() int {
	return s.priority
}

// Load returns the string form of each changed flag, viper converts on unmarshal
func (s *FlagSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})
	if s.flags == nil {
		return result, nil
	}

	for name, key := range s.keys {
		f := s.flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		result[key] = f.Value.String()
	}
	return result, nil
}
