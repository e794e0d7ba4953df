package component

// ConfigLoader read-only view of the merged configuration
// Components read their own section instead of depending on a shared config struct
type ConfigLoader interface {
	Get(key string) interface{}

	// Unmarshal decodes the section under key into v
	//
	//   cfg := event.DefaultConfig()
	//   if err := loader.Unmarshal("hook", &cfg); err != nil {
	//       return err
	//   }
	Unmarshal(key string, v interface{}) error

	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// IsSet reports whether key exists in any source
	IsSet(key string) bool
}
