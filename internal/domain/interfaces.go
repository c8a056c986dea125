package domain

import (
	"context"
)

// RecordLoader returns a full snapshot of intake and feedback records
type RecordLoader interface {
	LoadAll(ctx context.Context) ([]Record, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetStorageConfig() *StorageConfig
	GetDatabaseConfig() *DatabaseConfig
	GetCacheConfig() *CacheConfig
	GetMatchingConfig() *MatchingConfig
	Validate() error
	GetDatabaseURL() string
	IsDevelopment() bool
}
