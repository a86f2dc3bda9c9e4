package thingstore

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend type names accepted in Config.Type.
const (
	TypeMemory     = "memory"
	TypePostgres   = "postgres"
	TypePgx        = "pgx"
	TypeMySQL      = "mysql"
	TypeSQLite     = "sqlite"
	TypeFilesystem = "filesystem"
	TypeDynamoDB   = "dynamodb"
)

// Config contains the configuration of every store backend.
// Fields that do not apply to the selected backend are ignored.
type Config struct {
	// Basic connection info
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	// FilePath is the SQLite database file or the filesystem store root.
	FilePath string `yaml:"file_path"`

	// Collection names the table, key prefix, directory or DynamoDB table.
	Collection string `yaml:"collection"`

	// DynamoDB
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// Connection pooling
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// Timeouts
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`

	// Backend-specific options
	Options map[string]string `yaml:"options"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Type:            TypeMemory,
		Host:            "localhost",
		Port:            0, // Backend-specific default
		Collection:      DefaultCollection,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		ConnectTimeout:  30 * time.Second,
		QueryTimeout:    30 * time.Second,
		Options:         make(map[string]string),
		LogLevel:        "info",
	}
}

// Validate checks that the configuration is usable for its backend type.
func (c *Config) Validate() error {
	if c.Collection == "" {
		return NewConfigErrorForField("collection", c.Collection, "collection cannot be empty")
	}
	switch c.Type {
	case TypeMemory:
		return nil
	case TypePostgres, TypePgx, TypeMySQL:
		if c.Host == "" {
			return NewConfigErrorForField("host", c.Host, "host is required")
		}
		if c.Database == "" {
			return NewConfigErrorForField("database", c.Database, "database is required")
		}
		return nil
	case TypeSQLite:
		return nil // empty FilePath means an in-memory database
	case TypeFilesystem:
		if c.FilePath == "" {
			return NewConfigErrorForField("file_path", c.FilePath, "root directory is required")
		}
		return nil
	case TypeDynamoDB:
		if c.Region == "" {
			return NewConfigErrorForField("region", c.Region, "region is required")
		}
		return nil
	case "":
		return NewConfigErrorForField("type", c.Type, "store type is required")
	default:
		return NewConfigErrorForField("type", c.Type, "unknown store type")
	}
}

// ConfigFromEnv builds a configuration from STORE_* environment variables,
// falling back to DefaultConfig values. A malformed number or duration is
// a ConfigError naming the variable.
func ConfigFromEnv() (Config, error) {
	c := DefaultConfig()
	c.Type = getEnvOrDefault("STORE_TYPE", c.Type)
	c.Host = getEnvOrDefault("STORE_HOST", c.Host)
	c.Username = getEnvOrDefault("STORE_USERNAME", c.Username)
	c.Password = getEnvOrDefault("STORE_PASSWORD", c.Password)
	c.Database = getEnvOrDefault("STORE_DATABASE", c.Database)
	c.SSLMode = getEnvOrDefault("STORE_SSL_MODE", c.SSLMode)
	c.FilePath = getEnvOrDefault("STORE_FILE_PATH", c.FilePath)
	c.Collection = getEnvOrDefault("STORE_COLLECTION", c.Collection)
	c.Region = getEnvOrDefault("STORE_REGION", getEnvOrDefault("AWS_REGION", c.Region))
	c.Endpoint = getEnvOrDefault("STORE_ENDPOINT", c.Endpoint)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	var err error
	if c.Port, err = getEnvInt("STORE_PORT", c.Port); err != nil {
		return c, err
	}
	if c.ConnectTimeout, err = getEnvDuration("STORE_CONNECT_TIMEOUT", c.ConnectTimeout); err != nil {
		return c, err
	}
	if c.QueryTimeout, err = getEnvDuration("STORE_QUERY_TIMEOUT", c.QueryTimeout); err != nil {
		return c, err
	}
	return c, nil
}

// LoadConfigFile reads a YAML configuration file on top of DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	return LoadConfigFileOnto(path, DefaultConfig())
}

// LoadConfigFileOnto reads a YAML configuration file on top of base. Keys
// the file leaves out keep their base values.
func LoadConfigFileOnto(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	c := base
	c.Options = make(map[string]string, len(base.Options))
	for k, v := range base.Options {
		c.Options[k] = v
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return base, NewConfigError(fmt.Sprintf("parse %s: %v", path, err))
	}
	if c.Options == nil {
		c.Options = make(map[string]string)
	}
	return c, nil
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, NewConfigErrorForField(key, value, "not an integer")
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, NewConfigErrorForField(key, value, "not a duration")
	}
	return d, nil
}
