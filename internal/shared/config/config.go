package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envKeyReplacer maps nested keys such as board.tx_max_retries to
// TASKBOARD_BOARD_TX_MAX_RETRIES.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Board    BoardConfig    `mapstructure:"board"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	Issuer            string        `mapstructure:"issuer"`
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BoardConfig tunes the board module.
type BoardConfig struct {
	// TxMaxRetries bounds how often a transaction is replayed after a
	// serialization failure or deadlock.
	TxMaxRetries     int  `mapstructure:"tx_max_retries"`
	AsyncHooks       bool `mapstructure:"async_hooks"`
	ActivityPageSize int  `mapstructure:"activity_page_size"`
}

// EventsConfig selects and tunes the change-notification broker.
type EventsConfig struct {
	Broker           string        `mapstructure:"broker"` // memory, redis
	TopicPrefix      string        `mapstructure:"topic_prefix"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	CircuitTimeout   time.Duration `mapstructure:"circuit_timeout"`
	PublishTimeout   time.Duration `mapstructure:"publish_timeout"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/taskboard")

	return load(v)
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets are commonly injected under short names.
	if secret := os.Getenv("TASKBOARD_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("TASKBOARD_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("TASKBOARD_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Events.Broker {
	case "memory", "redis":
	default:
		return fmt.Errorf("events.broker: unknown broker %q", c.Events.Broker)
	}
	if c.Board.TxMaxRetries < 0 {
		return fmt.Errorf("board.tx_max_retries must not be negative")
	}
	if c.Board.ActivityPageSize <= 0 {
		return fmt.Errorf("board.activity_page_size must be positive")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "taskboard")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.issuer", "taskboard")
	v.SetDefault("auth.access_token_expiry", 15*time.Minute)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Board defaults
	v.SetDefault("board.tx_max_retries", 3)
	v.SetDefault("board.async_hooks", true)
	v.SetDefault("board.activity_page_size", 50)

	// Events defaults
	v.SetDefault("events.broker", "memory")
	v.SetDefault("events.topic_prefix", "taskboard")
	v.SetDefault("events.failure_threshold", 5)
	v.SetDefault("events.circuit_timeout", 30*time.Second)
	v.SetDefault("events.publish_timeout", 2*time.Second)
}
