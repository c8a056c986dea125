package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Database    DatabaseConfig `mapstructure:"database"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Matching    MatchingConfig `mapstructure:"matching"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Refresh     RefreshConfig  `mapstructure:"refresh"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Storage backends
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StorageConfig selects and configures the record backend
type StorageConfig struct {
	Backend      string `mapstructure:"backend"` // "file", "sqlite", "postgres"
	DataDir      string `mapstructure:"data_dir"`
	IntakesFile  string `mapstructure:"intakes_file"`
	FeedbackFile string `mapstructure:"feedback_file"`
	MetadataDir  string `mapstructure:"metadata_dir"`
	SQLitePath   string `mapstructure:"sqlite_path"`

	RemoteIntakesURL  string        `mapstructure:"remote_intakes_url"`
	RemoteFeedbackURL string        `mapstructure:"remote_feedback_url"`
	RemoteTimeout     time.Duration `mapstructure:"remote_timeout"`
	RemoteRateLimit   float64       `mapstructure:"remote_rate_limit"` // requests per second
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdle     time.Duration `mapstructure:"conn_max_idle"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents view cache configuration
type CacheConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxEntries  int           `mapstructure:"max_entries"`
	RedisURL    string        `mapstructure:"redis_url"` // empty disables the shared tier
	RedisPrefix string        `mapstructure:"redis_prefix"`
}

// MatchingConfig holds the intake/feedback pairing policy.
// The score weights and windows are business policy, not derived values.
type MatchingConfig struct {
	Window         time.Duration `mapstructure:"window"`
	NearWindow     time.Duration `mapstructure:"near_window"`
	MobileScore    int           `mapstructure:"mobile_score"`
	NameScore      int           `mapstructure:"name_score"`
	TherapistScore int           `mapstructure:"therapist_score"`
	NearScore      int           `mapstructure:"near_score"`
	AcceptScore    int           `mapstructure:"accept_score"`
}

// DefaultMatchingConfig returns the pairing policy the dashboard has always used
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		Window:         24 * time.Hour,
		NearWindow:     time.Hour,
		MobileScore:    100,
		NameScore:      50,
		TherapistScore: 20,
		NearScore:      10,
		AcceptScore:    50,
	}
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// RefreshConfig limits how often the cache can be cleared over HTTP
type RefreshConfig struct {
	RateLimit float64 `mapstructure:"rate_limit"` // refreshes per second
	Burst     int     `mapstructure:"burst"`
}
