package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// ErrConfigNotFound is returned when no configuration file could be located.
var ErrConfigNotFound = errors.New("no postbuild configuration found")

// FileNames lists the project-local configuration names, in lookup order.
var FileNames = []string{"postbuild.yaml", "postbuild.yml", "postbuild.toml"}

// userConfigPath is the per-user fallback relative to the XDG config home.
var userConfigPath = filepath.Join("postbuild", "config.yaml")

// Discover resolves the configuration file to load. An explicit path must exist. Otherwise
// the project directory is searched for FileNames, then the user's XDG config directory.
func Discover(explicit, projectDir string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("config file does not exist: %w", err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("config path %s is a directory", abs)
		}
		return abs, nil
	}

	for _, name := range FileNames {
		candidate := filepath.Join(projectDir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	if path, err := xdg.SearchConfigFile(userConfigPath); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w in %s or the user config directory", ErrConfigNotFound, projectDir)
}
