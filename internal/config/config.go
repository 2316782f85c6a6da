// Package config loads daemon configuration from an optional YAML file and
// the environment. AIDIS_-prefixed variables take precedence over their
// legacy unprefixed forms.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Tools    ToolsConfig    `yaml:"tools"`

	// SkipDatabase starts the daemon without a database connection. Tools
	// that need storage fail with Transient until one is available.
	SkipDatabase bool `yaml:"skip_database"`

	// SkipBackground suppresses background worker startup.
	SkipBackground bool `yaml:"skip_background"`

	// SkipStdio suppresses the stdio JSON-RPC transport.
	SkipStdio bool `yaml:"skip_stdio"`

	// Debug enables verbose MCP frame logging.
	Debug bool `yaml:"debug"`
}

// ServerConfig configures the HTTP listener and on-disk state.
type ServerConfig struct {
	// Host is the HTTP bind address.
	Host string `yaml:"host"`

	// Port is the HTTP port. Zero asks the port manager for one.
	Port int `yaml:"port"`

	// RunDir holds the PID file and the port registry.
	RunDir string `yaml:"run_dir"`

	// ServiceName is the name registered with the port manager.
	ServiceName string `yaml:"service_name"`

	// ToolTimeout bounds a single tool call.
	ToolTimeout time.Duration `yaml:"tool_timeout"`

	// ShutdownTimeout bounds graceful shutdown before force exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the relational+vector store connection.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// ConnectTimeout bounds the startup ping. Pool acquisition is bounded
	// by each call's context, not by this setting.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", c.Port),
		fmt.Sprintf("dbname=%s", c.Name),
		fmt.Sprintf("user=%s", c.User),
		fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}
	return strings.Join(parts, " ")
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format specifies output format: "json" or "text".
	Format string `yaml:"format"`
}

// ToolsConfig configures the tool catalog surface.
type ToolsConfig struct {
	// Prefix brands the catalog tool names (default "aidis").
	Prefix string `yaml:"prefix"`
}

// DefaultConfig returns the daemon defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			RunDir:          "./run",
			ServiceName:     "aidis-mcp",
			ToolTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "aidis",
			User:            "aidis",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnectTimeout:  10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tools: ToolsConfig{
			Prefix: "aidis",
		},
	}
}

// Load reads the optional YAML file at path (if non-empty), then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config. For every
// setting the AIDIS_-prefixed variable wins over the legacy form.
func (c *Config) ApplyEnv() {
	if v := envFirst("AIDIS_HTTP_HOST", "HTTP_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := envFirst("AIDIS_HTTP_PORT", "HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := envFirst("AIDIS_RUN_DIR", "RUN_DIR"); v != "" {
		c.Server.RunDir = v
	}

	if v := envFirst("AIDIS_DATABASE_HOST", "DATABASE_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := envFirst("AIDIS_DATABASE_PORT", "DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := envFirst("AIDIS_DATABASE_NAME", "DATABASE_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := envFirst("AIDIS_DATABASE_USER", "DATABASE_USER"); v != "" {
		c.Database.User = v
	}
	if v := envFirst("AIDIS_DATABASE_PASSWORD", "DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}

	if v := envFirst("AIDIS_LOG_LEVEL", "LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := envFirst("AIDIS_LOG_FORMAT", "LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := envFirst("AIDIS_TOOL_PREFIX", "TOOL_PREFIX"); v != "" {
		c.Tools.Prefix = v
	}

	c.SkipDatabase = envBool("AIDIS_SKIP_DATABASE", "SKIP_DATABASE", c.SkipDatabase)
	c.SkipBackground = envBool("AIDIS_SKIP_BACKGROUND", "SKIP_BACKGROUND", c.SkipBackground)
	c.SkipStdio = envBool("AIDIS_SKIP_STDIO", "SKIP_STDIO", c.SkipStdio)
	c.Debug = envBool("AIDIS_MCP_DEBUG", "MCP_DEBUG", c.Debug)
}

func envFirst(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(preferred, legacy string, fallback bool) bool {
	v := envFirst(preferred, legacy)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
