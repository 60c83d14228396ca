package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "kreltrack/internal/shared/config"
	"kreltrack/internal/shared/secret"
)

type Config struct {
	App      sharedConfig.AppConfig      `mapstructure:"app"`
	Database sharedConfig.DatabaseConfig `mapstructure:"database"`
	Logger   sharedConfig.LoggerConfig   `mapstructure:"logger"`
	Auth     sharedConfig.AuthConfig     `mapstructure:"auth"`
	Lookup   sharedConfig.LookupConfig   `mapstructure:"lookup"`
	Request  sharedConfig.RequestConfig  `mapstructure:"request"`
	EventBus sharedConfig.EventBusConfig `mapstructure:"eventbus"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables.
// A missing config file is not an error: defaults plus KRELTRACK_* variables
// are enough to run against a local sqlite file.
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("KRELTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("app.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := openSealed(&config, os.Getenv(secret.KeyEnv)); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// openSealed replaces sealed credentials with their plain text.
func openSealed(config *Config, passphrase string) error {
	for name, field := range map[string]*string{
		"database.password": &config.Database.Password,
		"auth.jwt.secret":   &config.Auth.JWT.Secret,
	} {
		plain, err := secret.OpenWithPassphrase(*field, passphrase)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		*field = plain
	}
	return nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Default returns a configuration populated only from defaults. Tests and
// embedded callers use it instead of touching the filesystem.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.timezone", "Asia/Ho_Chi_Minh")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "kreltrack.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "kreltrack")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stderr")

	// Auth defaults
	v.SetDefault("auth.password.bcrypt_cost", 12)
	v.SetDefault("auth.jwt.secret", "change-me-in-production")
	v.SetDefault("auth.jwt.session_minutes", 30)
	v.SetDefault("auth.lockout.max_attempts", 5)
	v.SetDefault("auth.lockout.window_minutes", 15)
	v.SetDefault("auth.lockout.duration_minutes", 15)

	// Lookup cache defaults
	v.SetDefault("lookup.refresh_interval_seconds", 300)
	v.SetDefault("lookup.seed_file", "")

	// Request service defaults
	v.SetDefault("request.delete_policy", "soft")
	v.SetDefault("request.store_timeout_seconds", 10)

	v.SetDefault("eventbus.mailbox_size", 256)
}
