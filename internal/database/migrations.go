package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// Direction selects which way a migration run goes
type Direction string

const (
	// Up applies every pending migration
	Up Direction = "up"
	// Down rolls back the latest migration
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down"
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown migration direction %q", s)
}

// SchemaVersion is the state of the submissions schema after a run
type SchemaVersion struct {
	Version uint
	Dirty   bool
	Changed bool
}

// MigrationRunner applies the SQL files under the migrations directory
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}
	return &MigrationRunner{migrate: m, log: logger}, nil
}

// Run moves the schema in direction and reports where it ended up.
// Nothing to do is not an error.
func (mr *MigrationRunner) Run(ctx context.Context, direction Direction) (SchemaVersion, error) {
	if err := ctx.Err(); err != nil {
		return SchemaVersion{}, err
	}

	var err error
	switch direction {
	case Up:
		err = mr.migrate.Up()
	case Down:
		err = mr.migrate.Steps(-1)
	default:
		return SchemaVersion{}, fmt.Errorf("unknown migration direction %q", direction)
	}

	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed = false
	} else if err != nil {
		return SchemaVersion{}, fmt.Errorf("running migrations %s: %w", direction, err)
	}

	state := SchemaVersion{Changed: changed}
	state.Version, state.Dirty, err = mr.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return state, fmt.Errorf("reading schema version: %w", err)
	}

	mr.log.WithFields(logrus.Fields{
		"direction": direction,
		"version":   state.Version,
		"dirty":     state.Dirty,
		"changed":   state.Changed,
	}).Info("Submissions schema migrated")
	return state, nil
}

// Close closes the migration runner
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}

// Migrate runs migrations at databaseURL in direction and releases the runner
func Migrate(ctx context.Context, databaseURL, migrationsPath string, direction Direction, logger *logrus.Logger) (SchemaVersion, error) {
	runner, err := NewMigrationRunner(databaseURL, migrationsPath, logger)
	if err != nil {
		return SchemaVersion{}, err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}
	}()
	return runner.Run(ctx, direction)
}
