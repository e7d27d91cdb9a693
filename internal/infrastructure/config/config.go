package config

import (
	"os"
	"strconv"
	"time"

	"netif-recorder/internal/application/polling"
	"netif-recorder/internal/domain/constants"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/pkg/utils"

	"gopkg.in/ini.v1"
)

// Config is a struct that holds application configuration
type Config struct {
	Store    StoreConfig
	Database DatabaseConfig
	Recorder RecorderConfig
	HTTP     HTTPConfig
	LogLevel string
}

// StoreConfig selects and configures the record repository
type StoreConfig struct {
	Backend    string
	Path       string
	BackupDir  string
	MaxBackups int
	Watch      bool
}

// DatabaseConfig is a struct that holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RecorderConfig holds host query and periodic reconcile settings
type RecorderConfig struct {
	CommandTimeout    time.Duration
	ResolvConf        string
	OSRelease         string
	ReconcileInterval time.Duration
	Strategy          string
	MaxInterval       time.Duration
	IdleInterval      time.Duration
	BackoffMultiplier float64
}

// HTTPConfig holds the command surface listener settings
type HTTPConfig struct {
	Port string
}

// ConfigLoader is an interface for loading configuration
type ConfigLoader interface {
	Load() (*Config, error)
}

// EnvironmentConfigLoader loads configuration from environment variables.
// When CONFIG_FILE names an INI file its values replace the built-in
// defaults; environment variables still win over the file.
type EnvironmentConfigLoader struct{}

// NewEnvironmentConfigLoader creates a new EnvironmentConfigLoader
func NewEnvironmentConfigLoader() ConfigLoader {
	return &EnvironmentConfigLoader{}
}

// Load loads configuration from the INI overlay and environment variables
func (l *EnvironmentConfigLoader) Load() (*Config, error) {
	file, err := loadOverlay(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Store: StoreConfig{
			Backend:    getEnvOrDefault("STORE_BACKEND", file.getString("store", "backend", constants.StoreBackendFile)),
			Path:       getEnvOrDefault("STORE_PATH", file.getString("store", "path", constants.DefaultStorePath)),
			BackupDir:  getEnvOrDefault("BACKUP_DIR", file.getString("store", "backup_dir", constants.DefaultBackupDir)),
			MaxBackups: getEnvIntOrDefault("MAX_BACKUPS", file.getInt("store", "max_backups", constants.DefaultMaxBackups)),
			Watch:      getEnvBoolOrDefault("WATCH_STORE", file.getBool("store", "watch", false)),
		},
		Database: DatabaseConfig{
			Host:         getEnvOrDefault("DB_HOST", file.getString("database", "host", constants.DefaultDBHost)),
			Port:         getEnvOrDefault("DB_PORT", file.getString("database", "port", constants.DefaultDBPort)),
			User:         getEnvOrDefault("DB_USER", file.getString("database", "user", "root")),
			Password:     getEnvOrDefault("DB_PASSWORD", file.getString("database", "password", "")),
			Database:     getEnvOrDefault("DB_NAME", file.getString("database", "name", constants.DefaultDBName)),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", file.getInt("database", "max_open_conns", 10)),
			MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", file.getInt("database", "max_idle_conns", 5)),
			MaxLifetime:  getEnvDurationOrDefault("DB_MAX_LIFETIME", file.getDuration("database", "max_lifetime", 5*time.Minute)),
		},
		Recorder: RecorderConfig{
			CommandTimeout:    getEnvDurationOrDefault("COMMAND_TIMEOUT", file.getDuration("recorder", "command_timeout", constants.DefaultCommandTimeout*time.Second)),
			ResolvConf:        getEnvOrDefault("RESOLV_CONF", file.getString("recorder", "resolv_conf", constants.DefaultResolvConf)),
			OSRelease:         getEnvOrDefault("OS_RELEASE_PATH", file.getString("recorder", "os_release", constants.DefaultOSRelease)),
			ReconcileInterval: getEnvDurationOrDefault("RECONCILE_INTERVAL", file.getDuration("recorder", "reconcile_interval", 0)),
			Strategy:          getEnvOrDefault("RECONCILE_STRATEGY", file.getString("recorder", "reconcile_strategy", polling.StrategyFixed)),
			MaxInterval:       getEnvDurationOrDefault("RECONCILE_MAX_INTERVAL", file.getDuration("recorder", "reconcile_max_interval", 10*time.Minute)),
			IdleInterval:      getEnvDurationOrDefault("RECONCILE_IDLE_INTERVAL", file.getDuration("recorder", "reconcile_idle_interval", 30*time.Minute)),
			BackoffMultiplier: getEnvFloatOrDefault("BACKOFF_MULTIPLIER", file.getFloat("recorder", "backoff_multiplier", 2.0)),
		},
		HTTP: HTTPConfig{
			Port: getEnvOrDefault("HTTP_PORT", file.getString("http", "port", constants.DefaultHTTPPort)),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", file.getString("log", "level", constants.DefaultLogLevel)),
	}

	// Validate configuration
	if err := l.validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validate validates the configuration
func (l *EnvironmentConfigLoader) validate(config *Config) error {
	switch config.Store.Backend {
	case constants.StoreBackendFile:
		if config.Store.Path == "" {
			return errors.NewValidationError("store path not configured", nil)
		}
	case constants.StoreBackendMySQL:
		db := config.Database
		if err := utils.ValidateDatabaseConfig(db.Host, db.Port, db.User, db.Database); err != nil {
			return errors.NewValidationError("invalid database configuration", err)
		}
	default:
		return errors.NewValidationError("unknown store backend: "+config.Store.Backend, nil)
	}

	if config.Store.MaxBackups < 0 {
		return errors.NewValidationError("invalid max backup count", nil)
	}

	if config.Recorder.CommandTimeout <= 0 {
		return errors.NewValidationError("invalid command timeout", nil)
	}
	if config.Recorder.ReconcileInterval < 0 {
		return errors.NewValidationError("invalid reconcile interval", nil)
	}
	switch config.Recorder.Strategy {
	case polling.StrategyFixed, polling.StrategyBackoff, polling.StrategyAdaptive:
	default:
		return errors.NewValidationError("unknown reconcile strategy: "+config.Recorder.Strategy, nil)
	}

	if config.HTTP.Port == "" {
		return errors.NewValidationError("http port not configured", nil)
	}

	return nil
}

// overlay wraps an optional INI file. A nil overlay yields the fallbacks.
type overlay struct {
	file *ini.File
}

func loadOverlay(path string) (*overlay, error) {
	if path == "" {
		return &overlay{}, nil
	}

	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return nil, errors.NewValidationError("failed to load config file "+path, err)
	}
	return &overlay{file: file}, nil
}

func (o *overlay) getString(section, key, fallback string) string {
	if o.file == nil {
		return fallback
	}
	return o.file.Section(section).Key(key).MustString(fallback)
}

func (o *overlay) getInt(section, key string, fallback int) int {
	if o.file == nil {
		return fallback
	}
	return o.file.Section(section).Key(key).MustInt(fallback)
}

func (o *overlay) getBool(section, key string, fallback bool) bool {
	if o.file == nil {
		return fallback
	}
	return o.file.Section(section).Key(key).MustBool(fallback)
}

func (o *overlay) getFloat(section, key string, fallback float64) float64 {
	if o.file == nil {
		return fallback
	}
	return o.file.Section(section).Key(key).MustFloat64(fallback)
}

func (o *overlay) getDuration(section, key string, fallback time.Duration) time.Duration {
	if o.file == nil {
		return fallback
	}
	return o.file.Section(section).Key(key).MustDuration(fallback)
}

// Environment variable helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
