package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AddressEnvVar overrides server.address when set
const AddressEnvVar = "MINIHTTPD_ADDRESS"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig `yaml:"server"`
	Logging LogConfig    `yaml:"logging"`
}

// ServerConfig contains settings for the listener and the connection dispatcher
type ServerConfig struct {
	Address        string `yaml:"address"`
	ChunkSize      int    `yaml:"chunk_size"`      // read chunk size in bytes
	ReadTimeout    int    `yaml:"read_timeout"`    // in seconds, 0 disables the deadline
	MaxConnections int    `yaml:"max_connections"` // 0 means unbounded
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// LogConfig contains settings for logging
type LogConfig struct {
	LogToFile   bool   `yaml:"log_to_file"`
	LogFilePath string `yaml:"log_file_path"`
	MaxSize     int    `yaml:"max_size"`    // maximum size in megabytes
	MaxBackups  int    `yaml:"max_backups"` // maximum number of old log files to retain
	MaxAge      int    `yaml:"max_age"`     // maximum number of days to retain old log files
	Compress    bool   `yaml:"compress"`    // compress determines if the rotated log files should be compressed
}

// LoadDefault returns a configuration with default values
func LoadDefault() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        "127.0.0.1:8000",
			ChunkSize:      1024,
			ReadTimeout:    0,
			MaxConnections: 0,
		},
		Logging: LogConfig{
			LogToFile:   false,
			LogFilePath: "minihttpd.log",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
			Compress:    true,
		},
	}
}

// Default returns a configuration with default values
func Default() *Config {
	cfg := LoadDefault()
	applyEnv(cfg)
	return cfg
}

// Load reads configuration from a file, decoding it over the default values
func Load(configPath string) (*Config, error) {
	cfg := LoadDefault()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// keys missing from the file keep their defaults, explicit zero values
	// such as compress: false override them
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)

	return cfg, nil
}

// LoadOrDefault attempts to load configuration from a file
// If the file doesn't exist or can't be parsed, it returns default configuration
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", configPath, err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg = Default()
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv(AddressEnvVar); addr != "" {
		cfg.Server.Address = addr
	}
}
