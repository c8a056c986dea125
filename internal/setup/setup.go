// Package setup opens the configured record backend and implements the admin commands.
package setup

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/config"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/database"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/records"
)

// Backend is an opened record backend
type Backend struct {
	// Loader merges every configured source
	Loader *records.Store
	// SQL is nil for the file backend
	SQL     *records.SQLStore
	sources []string
	closers []func()
}

// Sources names the sources the loader reads, in order
func (b *Backend) Sources() []string {
	return b.sources
}

// Close releases database handles
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// Options control how OpenBackend connects to PostgreSQL
type Options struct {
	// Pooled uses a pgx pool; otherwise a lib/pq handle is opened from the URL
	Pooled bool
	// Migrate applies pending migrations before opening
	Migrate bool
}

// OpenBackend opens the storage backend named by cfg.Storage.Backend and any
// configured remote sources. Database and remote sources sit behind circuit breakers.
func OpenBackend(ctx context.Context, manager domain.ConfigManager, opts Options, logger *logrus.Logger) (*Backend, error) {
	cfg := manager.GetConfig()
	storage := &cfg.Storage
	b := &Backend{}
	var bindings []records.Binding

	switch storage.Backend {
	case domain.BackendFile:
		bindings = append(bindings,
			records.Intakes(records.NewFileSource(config.IntakesPath(storage))),
			records.Feedback(records.NewFileSource(config.FeedbackPath(storage))),
		)
		if storage.MetadataDir != "" {
			// Per-submission files carry their own formType
			bindings = append(bindings, records.Intakes(records.NewDirSource(storage.MetadataDir, logger)))
		}

	case domain.BackendSQLite:
		store, err := records.NewSQLiteStore(storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite backend: %w", err)
		}
		b.SQL = store
		b.closers = append(b.closers, func() { _ = store.Close() })

	case domain.BackendPostgres:
		store, err := openPostgres(ctx, manager, opts, b, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.SQL = store

	default:
		return nil, domain.NewValidationError("storage.backend", "unknown storage backend", storage.Backend)
	}

	if b.SQL != nil {
		bindings = append(bindings,
			records.Intakes(records.NewBreakerSource(b.SQL.Source(records.KindIntake), logger)),
			records.Feedback(records.NewBreakerSource(b.SQL.Source(records.KindFeedback), logger)),
		)
	}

	if storage.RemoteIntakesURL != "" {
		bindings = append(bindings, records.Intakes(remoteSource("remote:intake", storage.RemoteIntakesURL, storage, logger)))
	}
	if storage.RemoteFeedbackURL != "" {
		bindings = append(bindings, records.Feedback(remoteSource("remote:feedback", storage.RemoteFeedbackURL, storage, logger)))
	}

	for _, binding := range bindings {
		b.sources = append(b.sources, binding.Source.Name())
	}
	b.Loader = records.NewStore(logger, bindings...)

	logger.WithFields(logrus.Fields{
		"backend": storage.Backend,
		"sources": b.sources,
	}).Info("Record backend opened")
	return b, nil
}

func openPostgres(ctx context.Context, manager domain.ConfigManager, opts Options, b *Backend, logger *logrus.Logger) (*records.SQLStore, error) {
	cfg := manager.GetDatabaseConfig()
	if opts.Migrate {
		if _, err := database.Migrate(ctx, manager.GetDatabaseURL(), cfg.MigrationsPath, database.Up, logger); err != nil {
			return nil, err
		}
	}

	if !opts.Pooled {
		store, err := records.NewPostgresStoreFromURL(manager.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL backend: %w", err)
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		return store, nil
	}

	db, err := database.NewConnection(ctx, *cfg, logger)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, db.Close)

	store, err := records.NewPostgresStore(db.SQL())
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL backend: %w", err)
	}
	b.closers = append(b.closers, func() { _ = store.Close() })
	return store, nil
}

func remoteSource(name, url string, storage *domain.StorageConfig, logger *logrus.Logger) records.Source {
	src := records.NewHTTPSource(records.HTTPConfig{
		Name:      name,
		URL:       url,
		Timeout:   storage.RemoteTimeout,
		RateLimit: storage.RemoteRateLimit,
	})
	return records.NewBreakerSource(src, logger)
}

// Status describes the configured backend and what it holds
type Status struct {
	Environment   string
	Backend       string
	DataDir       string
	DataDirExists bool
	Sources       []string
	Counts        map[records.Kind]int64
	Issues        []string
}

// GetStatus opens the backend read-only and counts its records
func GetStatus(ctx context.Context, manager domain.ConfigManager, logger *logrus.Logger) (*Status, error) {
	cfg := manager.GetConfig()
	status := &Status{
		Environment: cfg.Environment,
		Backend:     cfg.Storage.Backend,
		DataDir:     cfg.Storage.DataDir,
		Counts:      map[records.Kind]int64{records.KindIntake: 0, records.KindFeedback: 0},
	}
	if _, err := os.Stat(cfg.Storage.DataDir); err == nil {
		status.DataDirExists = true
	}
	if err := manager.Validate(); err != nil {
		status.Issues = append(status.Issues, err.Error())
		return status, nil
	}

	backend, err := OpenBackend(ctx, manager, Options{}, logger)
	if err != nil {
		status.Issues = append(status.Issues, err.Error())
		return status, nil
	}
	defer backend.Close()
	status.Sources = backend.Sources()

	if backend.SQL != nil {
		counts, err := backend.SQL.Count(ctx)
		if err != nil {
			status.Issues = append(status.Issues, err.Error())
			return status, nil
		}
		status.Counts = counts
		return status, nil
	}

	all, err := backend.Loader.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.Meta().FormType.IsIntake() {
			status.Counts[records.KindIntake]++
		} else {
			status.Counts[records.KindFeedback]++
		}
	}
	if len(all) == 0 {
		status.Issues = append(status.Issues, "no records found in "+cfg.Storage.DataDir)
	}
	return status, nil
}
