// Package flagx binds struct fields to pflag flags and back
package flagx

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var durationType = reflect.TypeOf(time.Duration(0))

// BindFlags registers one flag per tagged field and returns the flag -> config key map
// built from the config tags, ready for config.LoaderBuilder.WithFlags
//
//	type HookFlags struct {
//	    PoolSize int           `flag:"pool-size,p" usage:"worker pool size" config:"hook.pool_size"`
//	    Timeout  time.Duration `flag:"timeout" default:"2s" config:"hook.default_timeout"`
//	}
func BindFlags(fs *pflag.FlagSet, target interface{}) (map[string]string, error) {
	v, err := structValue(target)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]string)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("flag")
		if tag == "" {
			continue
		}

		name, short, _ := strings.Cut(tag, ",")
		if err := registerFlag(fs, field, name, short, field.Tag.Get("usage"), field.Tag.Get("default")); err != nil {
			return nil, err
		}
		if key := field.Tag.Get("config"); key != "" {
			keys[name] = key
		}
	}
	return keys, nil
}

// ParseFlags copies flag values into the tagged fields of target
func ParseFlags(fs *pflag.FlagSet, target interface{}) error {
	v, err := structValue(target)
	if err != nil {
		return err
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		tag := t.Field(i).Tag.Get("flag")
		if tag == "" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if err := setFieldValue(fs, field, name); err != nil {
			return fmt.Errorf("parse field %s: %w", t.Field(i).Name, err)
		}
	}
	return nil
}

func structValue(target interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("target must be a pointer to struct")
	}
	return v.Elem(), nil
}

func setFieldValue(fs *pflag.FlagSet, field reflect.Value, name string) error {
	if field.Type() == durationType {
		val, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		field.SetInt(int64(val))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		field.SetString(val)
	case reflect.Int:
		val, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		field.SetInt(int64(val))
	case reflect.Bool:
		val, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		field.SetBool(val)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		val, err := fs.GetStringSlice(name)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(val))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

func registerFlag(fs *pflag.FlagSet, field reflect.StructField, name, short, usage, def string) error {
	if field.Type == durationType {
		var d time.Duration
		if def != "" {
			parsed, err := time.ParseDuration(def)
			if err != nil {
				return fmt.Errorf("flag %s: bad default %q: %w", name, def, err)
			}
			d = parsed
		}
		fs.DurationP(name, short, d, usage)
		return nil
	}

	switch field.Type.Kind() {
	case reflect.String:
		fs.StringP(name, short, def, usage)
	case reflect.Int:
		n := 0
		if def != "" {
			parsed, err := strconv.Atoi(def)
			if err != nil {
				return fmt.Errorf("flag %s: bad default %q: %w", name, def, err)
			}
			n = parsed
		}
		fs.IntP(name, short, n, usage)
	case reflect.Bool:
		b := false
		if def != "" {
			parsed, err := strconv.ParseBool(def)
			if err != nil {
				return fmt.Errorf("flag %s: bad default %q: %w", name, def, err)
			}
			b = parsed
		}
		fs.BoolP(name, short, b, usage)
	case reflect.Slice:
		if field.Type.Elem().Kind() != reflect.String {
			return fmt.Errorf("flag %s: unsupported slice element type %s", name, field.Type.Elem().Kind())
		}
		var vals []string
		if def != "" {
			vals = strings.Split(def, ",")
		}
		fs.StringSliceP(name, short, vals, usage)
	default:
		return fmt.Errorf("flag %s: unsupported field type %s", name, field.Type.Kind())
	}
	return nil
}
