package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/viper"
)

// FileSource one optional config file (config.yaml, <env>.yaml); the format follows the extension
type FileSource struct {
	path     string
	priority int
}

func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority}
}

func (s *FileSource) Name() string {
	return "file:" + s.path
}

func (s *FileSource) Priority() int {
	return s.priority
}

// Load a missing file contributes nothing, an unreadable one is an error
func (s *FileSource) Load() (map[string]interface{}, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return map[string]interface{}{}, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	flat := make(map[string]interface{})
	flattenInto(flat, "", v.AllSettings())
	return flat, nil
}

// flattenMap {"hook": {"pool_size": 8}} -> {"hook.pool_size": 8}
// lists such as hook.overrides are leaves
func flattenMap(prefix string, data map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{})
	flattenInto(flat, prefix, data)
	return flat
}

func flattenInto(dst map[string]interface{}, prefix string, data map[string]interface{}) {
	for key, value := range data {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok && len(nested) > 0 {
			flattenInto(dst, key, nested)
			continue
		}
		dst[key] = value
	}
}
