package config

import (
	"os"
	"strings"
)

// EnvSource maps PREFIX_* variables onto config keys
//
//	HOOKS_HOOK__POOL_SIZE=16      -> hook.pool_size  ("__" separates segments)
//	HOOKS_TELEMETRY_ENABLED=true  -> telemetry.enabled
//
// Without "__" every "_" separates segments, so keys like pool_size need "__" or a binding
type EnvSource struct {
	prefix   string
	priority int
	bindings map[string]string // config key -> variable, with or without the prefix
}

// NewEnvSource creates an environment source; an empty prefix only serves bindings
func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{prefix: prefix, priority: priority, bindings: map[string]string{}}
}

// AddBinding pins key to one variable; bound values win over scanned ones
//
//	AddBinding("hook.default_timeout", "HOOK_DEFAULT_TIMEOUT")
func (s *EnvSource) AddBinding(key, envKey string) {
	s.bindings[key] = envKey
}

func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

func (s *EnvSource) Priority() int {
	return s.priority
}

// Load scans the prefix first, then applies the bindings on top
func (s *EnvSource) Load() (map[string]interface{}, error) {
	result := map[string]interface{}{}

	if s.prefix != "" {
		head := s.prefix + "_"
		for _, kv := range os.Environ() {
			name, value, _ := strings.Cut(kv, "=")
			rest, ok := strings.CutPrefix(name, head)
			if !ok || rest == "" || value == "" {
				continue
			}
			result[envToKey(rest)] = value
		}
	}

	for key, envKey := range s.bindings {
		if value, ok := os.LookupEnv(s.qualify(envKey)); ok && value != "" {
			result[key] = value
		}
	}
	return result, nil
}

func (s *EnvSource) qualify(envKey string) string {
	if s.prefix == "" || strings.HasPrefix(envKey, s.prefix+"_") {
		return envKey
	}
	return s.prefix + "_" + envKey
}

// envToKey HOOK__POOL_SIZE -> hook.pool_size, TELEMETRY_ENABLED -> telemetry.enabled
func envToKey(name string) string {
	name = strings.ToLower(name)
	if strings.Contains(name, "__") {
		return strings.ReplaceAll(name, "__", ".")
	}
	return strings.ReplaceAll(name, "_", ".")
}
