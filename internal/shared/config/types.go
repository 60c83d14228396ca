package config

import (
	"fmt"
	"time"
)

type AppConfig struct {
	Mode     string `mapstructure:"mode"`
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN builds the driver-specific connection string.
func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	case "sqlserver":
		return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	default:
		if d.Path == "" {
			return "kreltrack.db"
		}
		return d.Path
	}
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type PasswordConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type JWTConfig struct {
	Secret         string `mapstructure:"secret"`
	SessionMinutes int    `mapstructure:"session_minutes"`
}

type LockoutConfig struct {
	MaxAttempts     int `mapstructure:"max_attempts"`
	WindowMinutes   int `mapstructure:"window_minutes"`
	DurationMinutes int `mapstructure:"duration_minutes"`
}

type AuthConfig struct {
	Password PasswordConfig `mapstructure:"password"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Lockout  LockoutConfig  `mapstructure:"lockout"`
}

func (a *AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.JWT.SessionMinutes) * time.Minute
}

type LookupConfig struct {
	// RefreshIntervalSeconds <= 0 disables the background refresher.
	RefreshIntervalSeconds int    `mapstructure:"refresh_interval_seconds"`
	SeedFile               string `mapstructure:"seed_file"`
}

func (l *LookupConfig) RefreshInterval() time.Duration {
	return time.Duration(l.RefreshIntervalSeconds) * time.Second
}

type RequestConfig struct {
	DeletePolicy        string `mapstructure:"delete_policy"`
	StoreTimeoutSeconds int    `mapstructure:"store_timeout_seconds"`
}

func (r *RequestConfig) StoreTimeout() time.Duration {
	return time.Duration(r.StoreTimeoutSeconds) * time.Second
}

type EventBusConfig struct {
	MailboxSize int `mapstructure:"mailbox_size"`
}
