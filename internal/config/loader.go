package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDir  = ".telequery"
	configFile = "config"
	configType = "yaml"
	envPrefix  = "TELEQUERY"

	// DefaultTimespan is used when neither a flag nor the config sets one.
	DefaultTimespan = "P1D"
)

// Load reads the configuration from ~/.telequery/config.yaml.
// Returns a config holding only defaults if the file does not exist.
func Load() (*Config, error) {
	dir, err := DirPath()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	return LoadFrom(dir)
}

// LoadFrom reads config.yaml from dir. TELEQUERY_* environment variables
// override file values, e.g. TELEQUERY_PREFERENCES_TIMESPAN.
func LoadFrom(dir string) (*Config, error) {
	v := newViper(dir)

	cfg := &Config{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to ~/.telequery/config.yaml.
func Save(cfg *Config) error {
	dir, err := DirPath()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	return SaveTo(dir, cfg)
}

// SaveTo writes config.yaml into dir, creating it if needed.
func SaveTo(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("profiles", cfg.Profiles)
	v.Set("preferences", cfg.Preferences)

	path := filepath.Join(dir, configFile+"."+configType)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveProfile adds p to cfg (if new) and persists cfg into dir.
func SaveProfile(dir string, cfg *Config, p Profile) error {
	if cfg.HasProfile(p.Name) {
		return nil
	}
	cfg.AddProfile(p)
	return SaveTo(dir, cfg)
}

// DefaultProfile returns the default profile from config, or the first one.
func DefaultProfile(cfg *Config) *Profile {
	if len(cfg.Profiles) == 0 {
		return nil
	}

	if cfg.Preferences.DefaultProfile != "" {
		if p, ok := cfg.Profile(cfg.Preferences.DefaultProfile); ok {
			return p
		}
	}

	return &cfg.Profiles[0]
}

// DirPath returns the configuration directory, ~/.telequery.
func DirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFile)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("preferences.theme", "default")
	v.SetDefault("preferences.timespan", DefaultTimespan)
	v.SetDefault("preferences.log_level", "info")
	v.SetDefault("preferences.log_format", "text")
	v.SetDefault("preferences.default_profile", "")

	return v
}
