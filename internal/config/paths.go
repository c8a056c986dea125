package config

import (
	"os"
	"path/filepath"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// IntakesPath returns the path to the master intake JSON file.
func IntakesPath(cfg *domain.StorageConfig) string {
	return resolve(cfg.DataDir, cfg.IntakesFile)
}

// FeedbackPath returns the path to the master feedback JSON file.
func FeedbackPath(cfg *domain.StorageConfig) string {
	return resolve(cfg.DataDir, cfg.FeedbackFile)
}

// ExportDir returns the directory for JSON exports.
func ExportDir(cfg *domain.StorageConfig) string {
	return filepath.Join(cfg.DataDir, "exports")
}

// EnsureDataDir creates the data directory and the SQLite parent directory if they don't exist.
func EnsureDataDir(cfg *domain.StorageConfig) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return err
	}
	if cfg.Backend == domain.BackendSQLite && cfg.SQLitePath != "" {
		return os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755)
	}
	return nil
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
