package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Databases DatabasesConfig `mapstructure:"databases"`
	Store     StoreConfig     `mapstructure:"store"`
	Auth      AuthConfig      `mapstructure:"auth"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Log       LogConfig       `mapstructure:"log"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

type ServiceConfig struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	AllowedOrigins []string      `mapstructure:"allowedOrigins"`
}

type DatabasesConfig struct {
	SQL SQLConfig `mapstructure:"sql"`
}

type SQLConfig struct {
	Host             string `mapstructure:"host"`
	Port             string `mapstructure:"port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	PasswordSecretID string `mapstructure:"passwordSecretId"`
	Database         string `mapstructure:"database"`
	ConnectionString string `mapstructure:"connection_string"`
	MaxConns         int32  `mapstructure:"maxConns"`
	MinConns         int32  `mapstructure:"minConns"`
	AutoMigrate      bool   `mapstructure:"autoMigrate"`
}

// DSN returns the connection string, building it from the discrete fields
// when no explicit one is configured.
func (c SQLConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host,
		c.Username,
		c.Password,
		c.Database,
		c.Port)
}

type StoreDriver string

const (
	PostgresStore StoreDriver = "postgres"
	MemoryStore   StoreDriver = "memory"
)

type StoreConfig struct {
	Driver StoreDriver `mapstructure:"driver"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwtSecret"`
	JWTSecretID string        `mapstructure:"jwtSecretId"`
	TokenTTL    time.Duration `mapstructure:"tokenTTL"`
	BcryptCost  int           `mapstructure:"bcryptCost"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MonitorConfig struct {
	PoolStatsSpec string `mapstructure:"poolStatsSpec"`
}

// envBindings maps config keys to the environment variables the service has
// always been configured with.
var envBindings = map[string]string{
	"service.port":                    "PORT",
	"databases.sql.host":              "DB_HOST",
	"databases.sql.port":              "DB_PORT",
	"databases.sql.username":          "DB_USER",
	"databases.sql.password":          "DB_PASSWORD",
	"databases.sql.database":          "DB_NAME",
	"databases.sql.connection_string": "DB_URL",
	"databases.sql.passwordSecretId":  "DB_PASSWORD_SECRET_ID",
	"store.driver":                    "STORE_DRIVER",
	"auth.jwtSecret":                  "JWT_SECRET",
	"auth.jwtSecretId":                "JWT_SECRET_ID",
	"aws.region":                      "AWS_REGION",
	"log.level":                       "LOG_LEVEL",
	"log.file":                        "LOG_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.port", "5000")
	v.SetDefault("service.requestTimeout", 10*time.Second)
	v.SetDefault("service.allowedOrigins", []string{"*"})
	v.SetDefault("databases.sql.host", "localhost")
	v.SetDefault("databases.sql.port", "5432")
	v.SetDefault("databases.sql.username", "postgres")
	v.SetDefault("databases.sql.database", "crypto")
	v.SetDefault("databases.sql.maxConns", 10)
	v.SetDefault("databases.sql.minConns", 1)
	v.SetDefault("databases.sql.autoMigrate", true)
	v.SetDefault("store.driver", string(PostgresStore))
	v.SetDefault("auth.tokenTTL", 24*time.Hour)
	v.SetDefault("auth.bcryptCost", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("monitor.poolStatsSpec", "@every 1m")
}

// LoadConfig reads settings/appsettings.yaml, overlays appsettings.<env>.yaml
// when env is set, then applies environment variables. A .env file in the
// working directory is loaded first when present.
func LoadConfig(path string, env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, envVar := range envBindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, err
		}
	}

	v.AddConfigPath(path)
	v.SetConfigName("appsettings")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if env != "" {
		overlay := filepath.Join(path, fmt.Sprintf("appsettings.%s.yaml", env))
		if _, err := os.Stat(overlay); err == nil {
			v.SetConfigFile(overlay)
			if err := v.MergeInConfig(); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Store.Driver = StoreDriver(strings.ToLower(string(cfg.Store.Driver)))
	return &cfg, nil
}

// SecretGetter resolves a named secret to its plain value.
type SecretGetter interface {
	GetSecretValue(secretId string) (string, error)
}

// NeedsSecrets reports whether any value has to be fetched from a secret store.
func (c *Config) NeedsSecrets() bool {
	return (c.Auth.JWTSecret == "" && c.Auth.JWTSecretID != "") ||
		(c.Databases.SQL.Password == "" && c.Databases.SQL.PasswordSecretID != "")
}

// ResolveSecrets fills values that are configured by secret id only.
// Values set directly always win over the secret store.
func (c *Config) ResolveSecrets(secrets SecretGetter) error {
	if c.Auth.JWTSecret == "" && c.Auth.JWTSecretID != "" {
		value, err := secrets.GetSecretValue(c.Auth.JWTSecretID)
		if err != nil {
			return fmt.Errorf("failed to resolve jwt secret %q: %w", c.Auth.JWTSecretID, err)
		}
		c.Auth.JWTSecret = value
	}
	if c.Databases.SQL.Password == "" && c.Databases.SQL.PasswordSecretID != "" {
		value, err := secrets.GetSecretValue(c.Databases.SQL.PasswordSecretID)
		if err != nil {
			return fmt.Errorf("failed to resolve database password %q: %w", c.Databases.SQL.PasswordSecretID, err)
		}
		c.Databases.SQL.Password = value
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case PostgresStore, MemoryStore:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (JWT_SECRET) is not configured")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.tokenTTL must be positive")
	}
	if c.Service.Port == "" {
		return errors.New("service.port (PORT) is not configured")
	}
	return nil
}
