package config

import (
	"os"
	"path/filepath"
)

// configDir returns ~/.config/treewatch, or "." when there is no home
// directory.
func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, ".config", "treewatch")
}

// defaultDBPath returns the default journal database path.
//
// Returns: ~/.config/treewatch/journal.db.
func defaultDBPath() string {
	return filepath.Join(configDir(), "journal.db")
}

// DefaultConfigPath returns the per-user configuration file path.
//
// Returns: ~/.config/treewatch/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// localConfigPath is checked before the per-user file.
const localConfigPath = "./treewatch.yaml"
