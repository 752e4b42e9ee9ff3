package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "LIVECHECK_"
	// Delimiter is the key delimiter for nested config.
	Delimiter = "."
)

// Loader loads configuration from defaults, a file, the environment and
// explicit overrides, in increasing priority.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{k: koanf.New(Delimiter)}
}

// Load builds and validates a Config. An empty configPath searches the
// standard locations and tolerates finding nothing.
func (l *Loader) Load(configPath string, overrides map[string]any) (*Config, error) {
	l.k = koanf.New(Delimiter)

	defaults := flatten(DefaultConfig(), "")
	if err := l.k.Load(confmap.Provider(defaults, Delimiter), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := l.loadFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else if path := findConfigFile(); path != "" {
		if err := l.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := l.loadEnv(defaults); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if len(overrides) > 0 {
		if err := l.k.Load(confmap.Provider(overrides, Delimiter), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	var cfg Config
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateWithDetails(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadFile(path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file not found: %s: %w", path, err)
	}
	return l.k.Load(file.Provider(path), parser)
}

func findConfigFile() string {
	candidates := []string{
		"livecheck.yaml",
		"livecheck.yml",
		"livecheck.json",
		"configs/livecheck.yaml",
		"/etc/livecheck/livecheck.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadEnv maps LIVECHECK_SECTION_FIELD variables onto known keys. Keys are
// matched against the default key set so underscores inside field names
// (poll_interval, buffer_size) resolve unambiguously. Unknown variables are
// ignored.
func (l *Loader) loadEnv(known map[string]any) error {
	byEnv := make(map[string]string, len(known))
	for key := range known {
		byEnv[strings.ReplaceAll(key, Delimiter, "_")] = key
	}

	return l.k.Load(env.Provider(EnvPrefix, Delimiter, func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return byEnv[name]
	}), nil)
}

// Get returns a raw configuration value by key.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// String returns a string configuration value.
func (l *Loader) String(key string) string {
	return l.k.String(key)
}

// Print renders the loaded key space for debugging.
func (l *Loader) Print() string {
	return l.k.Sprint()
}

// flatten converts a struct into dot-separated keys using mapstructure tags.
func flatten(v any, prefix string) map[string]any {
	out := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Pointer {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return out
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + Delimiter + tag
		}

		fv := val.Field(i)
		switch {
		case fv.Type() == reflect.TypeOf(time.Duration(0)):
			out[key] = fv.Interface()
		case fv.Kind() == reflect.Map && fv.IsNil():
			continue
		case fv.Kind() == reflect.Struct:
			for k, nested := range flatten(fv.Interface(), key) {
				out[k] = nested
			}
		case fv.Kind() == reflect.Slice:
			items := make([]any, fv.Len())
			for j := range items {
				items[j] = fv.Index(j).Interface()
			}
			out[key] = items
		default:
			out[key] = fv.Interface()
		}
	}
	return out
}

// Load is a convenience wrapper around NewLoader().Load.
func Load(configPath string, overrides map[string]any) (*Config, error) {
	return NewLoader().Load(configPath, overrides)
}
