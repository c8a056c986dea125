package setup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/config"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/database"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/records"
)

// CLI runs the admin commands
type CLI struct {
	manager domain.ConfigManager
	logger  *logrus.Logger
	out     io.Writer
}

// NewCLI creates a new admin CLI instance
func NewCLI(manager domain.ConfigManager, logger *logrus.Logger, out io.Writer) *CLI {
	return &CLI{manager: manager, logger: logger, out: out}
}

// Run executes the admin command named by args[0]
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "status":
		return c.showStatus(ctx)
	case "validate":
		return c.validate()
	case "import":
		if len(args) != 3 {
			return fmt.Errorf("usage: admin import <intake|feedback> <file>")
		}
		return c.importFile(ctx, args[1], args[2])
	case "export":
		if len(args) > 2 {
			return fmt.Errorf("usage: admin export [file]")
		}
		path := ""
		if len(args) == 2 {
			path = args[1]
		}
		return c.exportFile(ctx, path)
	case "migrate":
		direction := "up"
		if len(args) > 1 {
			direction = args[1]
		}
		return c.migrate(ctx, direction)
	case "restore":
		if len(args) != 2 {
			return fmt.Errorf("usage: admin restore <file>")
		}
		return c.restoreFile(ctx, args[1])
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		_ = c.showHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *CLI) showHelp() error {
	fmt.Fprint(c.out, `
Intake Analytics Admin

Usage:
  server admin <command> [arguments]

Commands:
  status                            Show the configured backend and record counts
  validate                          Validate current configuration
  migrate [up|down]                 Apply or roll back PostgreSQL migrations
  import <intake|feedback> <file>   Load a master JSON file into the SQL backend
  export [file]                     Write every SQL-backed record to a JSON export
                                    (default: <data_dir>/exports/records-<time>.json)
  restore <file>                    Load a JSON export back into the SQL backend

Examples:
  server admin import intake pdfs/master_intakes.json
  server admin export exports/backup.json
`)
	return nil
}

func (c *CLI) showStatus(ctx context.Context) error {
	status, err := GetStatus(ctx, c.manager, c.logger)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "Intake Analytics Status")
	fmt.Fprintln(c.out, "=======================")
	fmt.Fprintf(c.out, "Environment: %s\n", status.Environment)
	fmt.Fprintf(c.out, "Backend:     %s\n", status.Backend)
	if status.DataDirExists {
		fmt.Fprintf(c.out, "Data dir:    %s\n", status.DataDir)
	} else {
		fmt.Fprintf(c.out, "Data dir:    %s (missing)\n", status.DataDir)
	}
	for _, name := range status.Sources {
		fmt.Fprintf(c.out, "Source:      %s\n", name)
	}
	fmt.Fprintln(c.out)

	kinds := make([]string, 0, len(status.Counts))
	for kind := range status.Counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	fmt.Fprintln(c.out, "Records:")
	for _, kind := range kinds {
		fmt.Fprintf(c.out, "  %-9s %d\n", kind, status.Counts[records.Kind(kind)])
	}

	if len(status.Issues) > 0 {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "Issues:")
		for _, issue := range status.Issues {
			fmt.Fprintf(c.out, "  ! %s\n", issue)
		}
	}
	return nil
}

func (c *CLI) migrate(ctx context.Context, raw string) error {
	direction, err := database.ParseDirection(raw)
	if err != nil {
		return err
	}
	if backend := c.manager.GetStorageConfig().Backend; backend != domain.BackendPostgres {
		return fmt.Errorf("migrations apply to the postgres backend, configured backend is %q", backend)
	}

	state, err := database.Migrate(ctx, c.manager.GetDatabaseURL(), c.manager.GetDatabaseConfig().MigrationsPath, direction, c.logger)
	if err != nil {
		return err
	}
	if !state.Changed {
		fmt.Fprintf(c.out, "Schema already at version %d, nothing to do\n", state.Version)
		return nil
	}
	fmt.Fprintf(c.out, "Schema migrated %s to version %d\n", direction, state.Version)
	return nil
}

func (c *CLI) validate() error {
	if err := c.manager.Validate(); err != nil {
		fmt.Fprintf(c.out, "Configuration has issues:\n  - %v\n", err)
		return err
	}
	fmt.Fprintln(c.out, "Configuration is valid")
	return nil
}

// sqlBackend opens the backend and insists it is SQL-backed
func (c *CLI) sqlBackend(ctx context.Context) (*Backend, error) {
	backend, err := OpenBackend(ctx, c.manager, Options{Migrate: true}, c.logger)
	if err != nil {
		return nil, err
	}
	if backend.SQL == nil {
		backend.Close()
		return nil, fmt.Errorf("storage backend %q has no database; set storage.backend to sqlite or postgres", c.manager.GetStorageConfig().Backend)
	}
	return backend, nil
}

func (c *CLI) importFile(ctx context.Context, rawKind, path string) error {
	kind, err := records.ParseKind(rawKind)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	backend, err := c.sqlBackend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	imported, skipped, err := backend.SQL.ImportDocument(ctx, kind, data)
	if err != nil {
		return fmt.Errorf("import failed after %d records: %w", imported, err)
	}
	fmt.Fprintf(c.out, "Imported %d %s records from %s (%d skipped)\n", imported, kind, path, skipped)
	return nil
}

func (c *CLI) exportFile(ctx context.Context, path string) error {
	backend, err := c.sqlBackend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	if path == "" {
		dir := config.ExportDir(c.manager.GetStorageConfig())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
		path = filepath.Join(dir, "records-"+time.Now().UTC().Format("20060102-150405")+".json")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := backend.SQL.ExportJSON(ctx, file); err != nil {
		file.Close()
		return fmt.Errorf("export failed: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(c.out, "Exported records to %s\n", path)
	return nil
}

func (c *CLI) restoreFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	backend, err := c.sqlBackend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	imported, skipped, err := backend.SQL.ImportJSON(ctx, file)
	if err != nil {
		return fmt.Errorf("restore failed after %d records: %w", imported, err)
	}
	fmt.Fprintf(c.out, "Restored %d records from %s (%d skipped)\n", imported, path, skipped)
	return nil
}
