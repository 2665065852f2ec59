// Package config provides YAML configuration loading with environment variable override.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file into the given struct.
// It also applies environment variable overrides using struct tags.
func Load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand environment variables in the YAML
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	ApplyEnv(out)
	return nil
}

// LoadOrDefault tries to load config from path. When the file does not exist
// the values already in out are kept and only env overrides are applied.
func LoadOrDefault(path string, out any) error {
	if path == "" {
		ApplyEnv(out)
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		ApplyEnv(out)
		return nil
	}
	return Load(path, out)
}

// ApplyEnv sets struct fields from environment variables named by the `env` tag.
// Nested structs are walked recursively.
func ApplyEnv(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := val.Field(i)

		if fieldVal.Kind() == reflect.Struct && fieldVal.Type() != reflect.TypeOf(time.Time{}) {
			if fieldVal.CanAddr() {
				ApplyEnv(fieldVal.Addr().Interface())
			}
			continue
		}

		envTag := field.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envVal, ok := os.LookupEnv(envTag)
		if !ok || !fieldVal.CanSet() {
			continue
		}
		setField(fieldVal, envVal)
	}
}

func setField(fieldVal reflect.Value, envVal string) {
	if fieldVal.Type() == reflect.TypeOf(time.Duration(0)) {
		if d, err := time.ParseDuration(envVal); err == nil {
			fieldVal.SetInt(int64(d))
		}
		return
	}

	switch fieldVal.Kind() {
	case reflect.String:
		fieldVal.SetString(envVal)
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(strings.TrimSpace(envVal), 10, 64); err == nil {
			fieldVal.SetInt(n)
		}
	case reflect.Float64:
		if f, err := strconv.ParseFloat(strings.TrimSpace(envVal), 64); err == nil {
			fieldVal.SetFloat(f)
		}
	case reflect.Bool:
		fieldVal.SetBool(strings.EqualFold(envVal, "true") || envVal == "1")
	case reflect.Slice:
		if fieldVal.Type().Elem().Kind() != reflect.String {
			return
		}
		var parts []string
		for _, p := range strings.Split(envVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		fieldVal.Set(reflect.ValueOf(parts))
	}
}
