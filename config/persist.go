package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before
// modifying the config file
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// deletion failure should not block a config save
		logger.Warnw("Failed to delete old backup",
			"path", back3,
			"error", err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, 0o644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// loadOrInitializeUserConfig loads the user config file as a raw
// document, or starts an empty one if it doesn't exist
func loadOrInitializeUserConfig() (map[string]interface{}, string, error) {
	configPath := UserConfigPath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .atom directory")
	}

	var config map[string]interface{}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrap(err, "failed to parse user config")
		}
	} else {
		config = make(map[string]interface{})
	}

	return config, configPath, nil
}

// saveUserConfig writes the config document back with a backup
func saveUserConfig(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write user config")
	}

	return nil
}

// SetAlias persists an alias mapping to the user config
func SetAlias(name, value string) error {
	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return err
	}

	var aliases map[string]interface{}
	if a, ok := config["aliases"].(map[string]interface{}); ok {
		aliases = a
	} else {
		aliases = make(map[string]interface{})
	}

	aliases[name] = value
	config["aliases"] = aliases

	return saveUserConfig(config, configPath)
}

// UnsetAlias removes an alias mapping from the user config. Built-in
// aliases cannot be removed, only shadowed.
func UnsetAlias(name string) error {
	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return err
	}

	aliases, ok := config["aliases"].(map[string]interface{})
	if !ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "alias %q is not configured", name)
	}
	if _, ok := aliases[name]; !ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "alias %q is not configured", name)
	}

	delete(aliases, name)
	config["aliases"] = aliases

	return saveUserConfig(config, configPath)
}
