package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv(AddressEnvVar, "")
	tempDir := t.TempDir()

	// Test case 1: Valid configuration file
	validConfigPath := filepath.Join(tempDir, "valid-config.yaml")
	validConfigContent := `
server:
  address: 0.0.0.0:4221
  chunk_size: 4096
  read_timeout: 30
  max_connections: 64
logging:
  log_to_file: true
  log_file_path: /tmp/minihttpd-test.log
  max_backups: 7
`
	if err := os.WriteFile(validConfigPath, []byte(validConfigContent), 0644); err != nil {
		t.Fatalf("Failed to write valid config file: %v", err)
	}

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("Failed to load valid config: %v", err)
	}

	if cfg.Server.Address != "0.0.0.0:4221" {
		t.Errorf("Expected address '0.0.0.0:4221', got '%s'", cfg.Server.Address)
	}
	if cfg.Server.ChunkSize != 4096 {
		t.Errorf("Expected chunk size 4096, got %d", cfg.Server.ChunkSize)
	}
	if cfg.Server.ReadTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected read timeout 30s, got %s", cfg.Server.ReadTimeoutDuration())
	}
	if cfg.Server.MaxConnections != 64 {
		t.Errorf("Expected max connections 64, got %d", cfg.Server.MaxConnections)
	}
	if !cfg.Logging.LogToFile {
		t.Errorf("Expected log_to_file to be true")
	}
	if cfg.Logging.LogFilePath != "/tmp/minihttpd-test.log" {
		t.Errorf("Expected log file path '/tmp/minihttpd-test.log', got '%s'", cfg.Logging.LogFilePath)
	}
	if cfg.Logging.MaxBackups != 7 {
		t.Errorf("Expected max backups 7, got %d", cfg.Logging.MaxBackups)
	}
	// untouched keys keep their defaults
	if cfg.Logging.MaxSize != 10 {
		t.Errorf("Expected default max size 10, got %d", cfg.Logging.MaxSize)
	}

	// Test case 2: Default values when settings are omitted
	minimalConfigPath := filepath.Join(tempDir, "minimal-config.yaml")
	minimalConfigContent := `
server:
  address: localhost:9000
`
	if err := os.WriteFile(minimalConfigPath, []byte(minimalConfigContent), 0644); err != nil {
		t.Fatalf("Failed to write minimal config file: %v", err)
	}

	minimalCfg, err := Load(minimalConfigPath)
	if err != nil {
		t.Fatalf("Failed to load minimal config: %v", err)
	}
	if minimalCfg.Server.Address != "localhost:9000" {
		t.Errorf("Expected address 'localhost:9000', got '%s'", minimalCfg.Server.Address)
	}
	if minimalCfg.Server.ChunkSize != 1024 {
		t.Errorf("Expected default chunk size 1024, got %d", minimalCfg.Server.ChunkSize)
	}
	if minimalCfg.Server.ReadTimeout != 0 {
		t.Errorf("Expected no read timeout by default, got %d", minimalCfg.Server.ReadTimeout)
	}
	if minimalCfg.Server.MaxConnections != 0 {
		t.Errorf("Expected unbounded connections by default, got %d", minimalCfg.Server.MaxConnections)
	}

	// Test case 3: Explicit false overrides a true default
	noCompressPath := filepath.Join(tempDir, "no-compress.yaml")
	noCompressContent := `
logging:
  compress: false
`
	if err := os.WriteFile(noCompressPath, []byte(noCompressContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	noCompressCfg, err := Load(noCompressPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if noCompressCfg.Logging.Compress {
		t.Errorf("Expected compress: false from the file to override the default")
	}
	if noCompressCfg.Logging.MaxAge != 28 || noCompressCfg.Server.Address != "127.0.0.1:8000" {
		t.Errorf("Expected other defaults to be kept, got %+v", noCompressCfg)
	}

	// Test case 4: Invalid configuration file
	invalidConfigPath := filepath.Join(tempDir, "invalid-config.yaml")
	invalidConfigContent := `
server:
  - address
  -
invalid yaml format
`
	if err := os.WriteFile(invalidConfigPath, []byte(invalidConfigContent), 0644); err != nil {
		t.Fatalf("Failed to write invalid config file: %v", err)
	}
	if _, err := Load(invalidConfigPath); err == nil {
		t.Errorf("Expected error when loading invalid config, got nil")
	}

	// Test case 5: Non-existent file
	if _, err := Load(filepath.Join(tempDir, "non-existent.yaml")); err == nil {
		t.Errorf("Expected error when loading non-existent file, got nil")
	}
}

func TestAddressFromEnvironment(t *testing.T) {
	t.Setenv(AddressEnvVar, "127.0.0.1:9999")

	if cfg := Default(); cfg.Server.Address != "127.0.0.1:9999" {
		t.Errorf("Expected address from environment, got '%s'", cfg.Server.Address)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("server:\n  address: 0.0.0.0:1\n"), 0644)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1:9999" {
		t.Errorf("Environment must override the file, got '%s'", cfg.Server.Address)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv(AddressEnvVar, "")
	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg.Server.Address != "127.0.0.1:8000" {
		t.Errorf("Expected default address, got '%s'", cfg.Server.Address)
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	cfg := LoadDefault()

	if cfg.Server.Address != "127.0.0.1:8000" {
		t.Errorf("Expected default address '127.0.0.1:8000', got '%s'", cfg.Server.Address)
	}
	if cfg.Server.ChunkSize != 1024 {
		t.Errorf("Expected default chunk size 1024, got %d", cfg.Server.ChunkSize)
	}
	if cfg.Logging.LogToFile {
		t.Errorf("Expected file logging to be off by default")
	}
	if cfg.Logging.LogFilePath != "minihttpd.log" {
		t.Errorf("Expected default log file 'minihttpd.log', got '%s'", cfg.Logging.LogFilePath)
	}
}
