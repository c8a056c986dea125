package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/intake-analytics/")

	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and environment variables still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// Storage defaults
	v.SetDefault("storage.backend", domain.BackendFile)
	v.SetDefault("storage.data_dir", "./pdfs")
	v.SetDefault("storage.intakes_file", "master_intakes.json")
	v.SetDefault("storage.feedback_file", "master_feedback.json")
	v.SetDefault("storage.metadata_dir", "")
	v.SetDefault("storage.sqlite_path", "./data/analytics.db")
	v.SetDefault("storage.remote_intakes_url", "")
	v.SetDefault("storage.remote_feedback_url", "")
	v.SetDefault("storage.remote_timeout", "15s")
	v.SetDefault("storage.remote_rate_limit", 5)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "intake_analytics")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle", "30m")
	v.SetDefault("database.migrations_path", "./migrations")

	// Cache defaults
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.redis_prefix", "analytics:")

	// Matching defaults
	match := domain.DefaultMatchingConfig()
	v.SetDefault("matching.window", match.Window.String())
	v.SetDefault("matching.near_window", match.NearWindow.String())
	v.SetDefault("matching.mobile_score", match.MobileScore)
	v.SetDefault("matching.name_score", match.NameScore)
	v.SetDefault("matching.therapist_score", match.TherapistScore)
	v.SetDefault("matching.near_score", match.NearScore)
	v.SetDefault("matching.accept_score", match.AcceptScore)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "./logs/analytics.log")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Refresh endpoint defaults
	v.SetDefault("refresh.rate_limit", 1)
	v.SetDefault("refresh.burst", 3)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStorageConfig returns record storage configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetCacheConfig returns view cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetMatchingConfig returns the intake/feedback pairing policy
func (m *Manager) GetMatchingConfig() *domain.MatchingConfig {
	return &m.config.Matching
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a configuration for values the service cannot run with
func Validate(config *domain.Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Storage.Backend {
	case domain.BackendFile:
		if config.Storage.DataDir == "" {
			return fmt.Errorf("storage data_dir is required for the file backend")
		}
	case domain.BackendSQLite:
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("storage sqlite_path is required for the sqlite backend")
		}
	case domain.BackendPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", config.Storage.Backend)
	}

	for _, raw := range []string{config.Storage.RemoteIntakesURL, config.Storage.RemoteFeedbackURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid remote source URL: %q", raw)
		}
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", config.Cache.TTL)
	}
	if config.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be positive, got %d", config.Cache.MaxEntries)
	}

	match := config.Matching
	if match.Window <= 0 {
		return fmt.Errorf("matching window must be positive, got %s", match.Window)
	}
	if match.NearWindow < 0 || match.NearWindow > match.Window {
		return fmt.Errorf("matching near_window must be within [0, window], got %s", match.NearWindow)
	}
	if match.AcceptScore <= 0 {
		return fmt.Errorf("matching accept_score must be positive, got %d", match.AcceptScore)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseURL returns the database connection as a URL, as golang-migrate and lib/pq expect
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Database,
		RawQuery: "sslmode=" + url.QueryEscape(db.SSLMode),
	}
	return u.String()
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
