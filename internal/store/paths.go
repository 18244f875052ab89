package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/geotree/internal/constants"
)

// GlobalGeotreePath returns the path to the global .geotree directory.
// On Unix: ~/.geotree
// On Windows: %USERPROFILE%\.geotree
func GlobalGeotreePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName), nil
}

// DefaultDatabasePath returns the run database inside the global .geotree
// directory.
func DefaultDatabasePath() (string, error) {
	dir, err := GlobalGeotreePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.DatabaseFileName), nil
}

// EnsureGlobalGeotreeDir creates the global .geotree directory if it doesn't exist.
func EnsureGlobalGeotreeDir() error {
	globalPath, err := GlobalGeotreePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return fmt.Errorf("failed to create global .geotree directory: %w", err)
	}

	return nil
}
