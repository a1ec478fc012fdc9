package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "CFS"

// newViper builds a pre-configured Viper instance with the platform's
// standard settings: YAML file type, CFS_ env prefix, automatic env
// binding, and a key replacer that maps "." → "_" so that nested keys
// like "database.host" resolve to "CFS_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// registerDefaults seeds viper with every config key and its platform
// default. AutomaticEnv only resolves keys viper already knows about, so
// without this step CFS_* variables would be invisible when no config
// file supplies the key.
func registerDefaults(v *viper.Viper) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	var raw map[string]interface{}
	if err := mapstructure.Decode(cfg, &raw); err != nil {
		return
	}
	flat := make(map[string]interface{})
	flatten("", raw, flat)
	for key, val := range flat {
		v.SetDefault(key, val)
	}
}

func flatten(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, val := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]interface{}); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = val
	}
}

// Load reads the YAML file at configPath, merges any CFS_* environment
// variable overrides, applies platform defaults for unset fields, and
// validates the result. It returns a fully-populated *Config or a
// descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CFS_* environment variables,
// with no config file required. This is the preferred loading strategy
// for containerised deployments.
//
// Environment variable naming convention:
//
//	CFS_<SECTION>_<FIELD>   e.g.  CFS_DATABASE_HOST, CFS_MODEL_ARTIFACT_PATH
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct,
// applies defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the
// newly parsed Config whenever the file is modified on disk. Intended for
// hot-reloading non-critical settings such as log level and forecast
// tunables; callers are responsible for applying only the safe subset of
// changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by
// viper (fsnotify underneath). If the changed file fails to parse or
// validate, onChange is not called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors are ignored here since callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// Config change produced an invalid config; skip the callback to
			// prevent the application from entering a broken state.
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// Intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
