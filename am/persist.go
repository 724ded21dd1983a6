package am

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/logger"
)

const defaultHeader = `# restock configuration
# Precedence: /etc/restock/am.toml < ~/.restock/am.toml < ./am.toml < RESTOCK_* env vars
# Secrets (backup.token) belong in RESTOCK_BACKUP_TOKEN, not here.

`

// Marshal renders cfg as TOML. The backup token is never written.
func Marshal(cfg *Config) ([]byte, error) {
	redacted := *cfg
	redacted.Backup.Token = ""
	data, err := toml.Marshal(redacted)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	return data, nil
}

// WriteDefault writes the default configuration to path, rotating any
// existing file into .back1-.back3 first.
func WriteDefault(path string) error {
	data, err := Marshal(Default())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// createBackup rotates .back2 -> .back3, .back1 -> .back2, current -> .back1
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back1 := configPath + ".back1"
	back2 := configPath + ".back2"
	back3 := configPath + ".back3"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old config backup", "path", back3, "error", err)
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
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}
