// Package config holds the tool configuration: alias mappings, publish
// tuning, and logging preferences. Sources merge in precedence order:
// defaults, system config, user config, project config, environment.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/uri"
)

// Config is the root configuration structure
type Config struct {
	Aliases map[string]string `mapstructure:"aliases"`
	Publish PublishConfig     `mapstructure:"publish"`
	Log     LogConfig         `mapstructure:"log"`
}

// PublishConfig tunes the publish pipeline
type PublishConfig struct {
	// Workers is the number of concurrent publish workers (default: NumCPU)
	Workers int `mapstructure:"workers"`
	// MaxRefRetries bounds compare-and-swap retries when a ref moves
	// underneath a publish (default: 3)
	MaxRefRetries int `mapstructure:"max_ref_retries"`
	// Remote names the git remote atom refs are pushed to (default: origin)
	Remote string `mapstructure:"remote"`
}

// LogConfig configures log output
type LogConfig struct {
	JSON bool `mapstructure:"json"` // structured JSON instead of console output
}

const (
	// DefaultDirPermissions for created config directories
	DefaultDirPermissions = 0o750

	userConfigDir  = ".atom"
	userConfigFile = "config.toml"

	// projectConfigFile lives beside a repository root. The dotted name
	// keeps it distinct from atom.toml, which names an atom, not the tool.
	projectConfigFile = ".atom.toml"
)

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the merged configuration, caching the result
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadFromFile loads configuration from a specific file path, skipping
// the usual source merge
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// AliasTable returns the effective alias table: built-ins overlaid with
// configured mappings, so user config shadows the defaults.
func (c *Config) AliasTable() uri.Aliases {
	return uri.DefaultAliases().Merge(uri.Aliases(c.Aliases))
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("publish.workers", runtime.NumCPU())
	v.SetDefault("publish.max_ref_retries", 3)
	v.SetDefault("publish.remote", "origin")
	v.SetDefault("log.json", false)
}

// UserConfigPath returns the path to the user config file in
// ~/.atom/config.toml, or "" when the home directory is unknown
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, userConfigDir, userConfigFile)
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("ATOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig searches for .atom.toml by walking up the directory
// tree. Returns the first match, or "" when none is found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, projectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles merges configuration files in precedence order
// (lowest to highest): system < user < project
func mergeConfigFiles(v *viper.Viper) {
	configPaths := []string{
		filepath.Join("/etc/atom", userConfigFile),
	}
	if user := UserConfigPath(); user != "" {
		os.MkdirAll(filepath.Dir(user), DefaultDirPermissions)
		configPaths = append(configPaths, user)
	}
	if project := findProjectConfig(); project != "" {
		configPaths = append(configPaths, project)
	}

	for _, configPath := range configPaths {
		if _, err := os.Stat(configPath); err != nil {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(configPath)
		tempViper.SetConfigType("toml")

		if err := tempViper.ReadInConfig(); err == nil {
			for key, value := range tempViper.AllSettings() {
				v.Set(key, value)
			}
		}
	}
}
