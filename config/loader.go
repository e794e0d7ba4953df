package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Loader merges several configuration sources by priority
type Loader struct {
	sources      []ConfigSource
	mergedConfig map[string]interface{} // flat, dot-separated keys
	v            *viper.Viper
	loadedFiles  []string
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		sources:      make([]ConfigSource, 0),
		mergedConfig: make(map[string]interface{}),
		v:            viper.New(),
		loadedFiles:  make([]string, 0),
	}
}

// AddSource adds a configuration source
func (l *Loader) AddSource(source ConfigSource) {
	l.sources = append(l.sources, source)
}

// Load loads every source, higher priority overriding lower
func (l *Loader) Load() error {
	sort.SliceStable(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	l.mergedConfig = make(map[string]interface{})
	l.loadedFiles = l.loadedFiles[:0]
	for _, source := range l.sources {
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("load source %s: %w", source.Name(), err)
		}
		if fileSource, ok := source.(*FileSource); ok && len(data) > 0 {
			l.loadedFiles = append(l.loadedFiles, fileSource.path)
		}
		for key, value := range data {
			l.mergedConfig[strings.ToLower(key)] = value
		}
	}

	l.syncToViper()
	return nil
}

// syncToViper rebuilds the viper instance from the merged flat map
func (l *Loader) syncToViper() {
	v := viper.New()
	for key, value := range unflattenMap(l.mergedConfig) {
		v.Set(key, value)
	}
	l.v = v
}

// unflattenMap {"hook.pool_size": 8} -> {"hook": {"pool_size": 8}}
func unflattenMap(flat map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for key, value := range flat {
		setNestedValue(result, key, value)
	}
	return result
}

func setNestedValue(m map[string]interface{}, key string, value interface{}) {
	keys := splitKey(key)
	if len(keys) == 0 {
		return
	}

	current := m
	for _, k := range keys[:len(keys)-1] {
		nested, ok := current[k].(map[string]interface{})
		if !ok {
			// a scalar at an intermediate key is replaced by the deeper value
			nested = make(map[string]interface{})
			current[k] = nested
		}
		current = nested
	}
	current[keys[len(keys)-1]] = value
}

// splitKey splits on dots, dropping empty segments
func splitKey(key string) []string {
	parts := strings.Split(key, ".")
	result := parts[:0]
	for _, p := range parts {
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Unmarshal decodes the section under key into v
// Duration strings ("2s", "150ms") are decoded into time.Duration fields
func (l *Loader) Unmarshal(key string, v interface{}) error {
	return l.v.UnmarshalKey(key, v)
}

// UnmarshalAll decodes the whole configuration into v
func (l *Loader) UnmarshalAll(v interface{}) error {
	return l.v.Unmarshal(v)
}

// Get returns the raw value
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// GetInt returns an int value
func (l *Loader) GetInt(key string) int {
	return l.v.GetInt(key)
}

// GetBool returns a bool value
func (l *Loader) GetBool(key string) bool {
	return l.v.GetBool(key)
}

// IsSet reports whether key is present
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// AllSettings returns the nested settings map
func (l *Loader) AllSettings() map[string]interface{} {
	return l.v.AllSettings()
}

// GetLoadedFiles returns the files that contributed values
func (l *Loader) GetLoadedFiles() []string {
	return l.loadedFiles
}

// GetViper returns the underlying viper instance
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// Reload reloads every source
func (l *Loader) Reload() error {
	return l.Load()
}
