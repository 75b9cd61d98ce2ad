package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Environment string          `yaml:"environment" envconfig:"ENVIRONMENT"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rateLimit"`
	Log         LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"            envconfig:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// CORS origins, "*" allows any.
	AllowedOrigins []string `yaml:"allowedOrigins" envconfig:"CORS_ALLOWED_ORIGINS"`
}

type DatabaseConfig struct {
	// Driver is "mysql" or "sqlite".
	Driver string `yaml:"driver" envconfig:"DB_DRIVER"`
	// DSN overrides the individual connection parts when set.
	DSN         string        `yaml:"dsn"         envconfig:"DB_DSN"`
	Host        string        `yaml:"host"        envconfig:"DB_HOST"`
	Port        string        `yaml:"port"        envconfig:"DB_PORT"`
	User        string        `yaml:"user"        envconfig:"DB_USER"`
	Password    string        `yaml:"password"    envconfig:"DB_PASSWORD"`
	Name        string        `yaml:"name"        envconfig:"DB_NAME"`
	AutoMigrate bool          `yaml:"autoMigrate" envconfig:"DB_AUTO_MIGRATE"`
	SlowQuery   time.Duration `yaml:"slowQuery"   envconfig:"DB_SLOW_QUERY"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"  envconfig:"REDIS_ENABLED"`
	Addr     string `yaml:"addr"     envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       envconfig:"REDIS_DB"`
	// CountsTTL bounds how long cached vote counts may lag behind the ledger.
	CountsTTL time.Duration `yaml:"countsTTL" envconfig:"REDIS_COUNTS_TTL"`
	LockTTL   time.Duration `yaml:"lockTTL"   envconfig:"REDIS_LOCK_TTL"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" envconfig:"AUTH_JWT_SECRET"`
}

type RateLimitConfig struct {
	Enabled     bool `yaml:"enabled"     envconfig:"ENABLE_RATE_LIMIT"`
	GlobalRate  int  `yaml:"globalRate"  envconfig:"GLOBAL_RATE_LIMIT"`
	GlobalBurst int  `yaml:"globalBurst" envconfig:"GLOBAL_RATE_BURST"`
	UserRate    int  `yaml:"userRate"    envconfig:"USER_RATE_LIMIT"`
	UserBurst   int  `yaml:"userBurst"   envconfig:"USER_RATE_BURST"`
}

type LogConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`
	// Format is "text" or "json".
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:      "mysql",
			Host:        "mysql",
			Port:        "3306",
			User:        "voteuser",
			Password:    "votepassword",
			Name:        "votingdb",
			AutoMigrate: true,
			SlowQuery:   time.Second,
		},
		Redis: RedisConfig{
			Enabled:   false,
			Addr:      "localhost:16379",
			CountsTTL: 30 * time.Second,
			LockTTL:   30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:     false,
			GlobalRate:  100,
			GlobalBurst: 200,
			UserRate:    10,
			UserBurst:   20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads configFile as YAML when it is set and then applies
// environment overrides.
func LoadConfig(configFile string) (*Config, error) {
	cfg := Default()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	if c.Environment == EnvProduction && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required in production")
	}
	return nil
}

// IsDevelopment reports whether development conveniences such as seed data
// are enabled.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// MySQLDSN builds the mysql connection string from the individual parts.
func (d DatabaseConfig) MySQLDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}
