// Package config loads the service's configuration through viper, binding
// NETACLD_-prefixed environment variables (spec §6's POSTGRES_*, REDIS_*,
// LDAP_*, JWT_*, API_URL catalogue) and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Postgres holds the Postgres connection settings.
type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Redis holds the job queue's Redis connection settings.
type Redis struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LDAP holds the directory bind settings consumed by internal/auth.
type LDAP struct {
	ServerURI        string `mapstructure:"server_uri"`
	UserBindDNFormat string `mapstructure:"user_bind_dn_format"`
	UserSearchBase   string `mapstructure:"user_search_base"`
	UserSearchFilter string `mapstructure:"user_search_filter"`
	UsernameAttr     string `mapstructure:"username_attr"`
	EmailAttr        string `mapstructure:"email_attr"`
	NameAttr         string `mapstructure:"name_attr"`
	InsecureSkipTLS  bool   `mapstructure:"insecure_skip_tls"`
}

// JWT holds the token-signing settings.
type JWT struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

// Config is the typed root of the service's configuration.
type Config struct {
	Env      string   `mapstructure:"env"`
	LogLevel string   `mapstructure:"log_level"`
	Listen   string   `mapstructure:"listen"`
	APIURL   string   `mapstructure:"api_url"`
	Postgres Postgres `mapstructure:"postgres"`
	Redis    Redis    `mapstructure:"redis"`
	LDAP     LDAP     `mapstructure:"ldap"`
	JWT      JWT      `mapstructure:"jwt"`
}

// TokenTTL returns the configured JWT expiry, defaulting to 60 minutes
// (spec §6: "expiry default 60m") when unset.
func (c Config) TokenTTL() time.Duration {
	if c.JWT.ExpireMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.JWT.ExpireMinutes) * time.Minute
}

// PostgresDSN renders the libpq-style connection string pgx/sqlx consume.
func (c Config) PostgresDSN() string {
	sslmode := c.Postgres.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password, c.Postgres.Database, sslmode)
}

// RedisAddr renders the host:port address go-redis expects.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Validate fails fast on missing required settings, the way the teacher's
// own setup aborts on bad config rather than deferring errors to first use.
func (c Config) Validate() error {
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required")
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}
	if c.LDAP.ServerURI == "" {
		return fmt.Errorf("ldap.server_uri is required")
	}
	return nil
}

// Load binds NETACLD_-prefixed environment variables (and, when present, a
// YAML file named by configPath) into a Config.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NETACLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen", ":8080")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.expire_minutes", 60)

	// AutomaticEnv alone does not make Unmarshal see keys that have no
	// default, so bind those explicitly.
	for _, key := range []string{
		"api_url",
		"postgres.host", "postgres.user", "postgres.password", "postgres.database",
		"redis.host",
		"ldap.server_uri", "ldap.user_bind_dn_format", "ldap.user_search_base", "ldap.user_search_filter",
		"ldap.username_attr", "ldap.email_attr", "ldap.name_attr", "ldap.insecure_skip_tls",
		"jwt.secret_key",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}
