package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/netbox-mcp/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	NetBox  NetBoxConfig  `json:"netbox" yaml:"netbox"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

// NetBoxConfig holds the inventory API connection settings.
type NetBoxConfig struct {
	URL   string `json:"url" yaml:"url" env:"NETBOX_URL"`
	Token string `json:"token" yaml:"token" env:"NETBOX_TOKEN"`

	// TLS Configuration
	SSLVerify      bool   `json:"sslVerify" yaml:"ssl_verify" env:"NETBOX_SSL_VERIFY"`
	CACertPath     string `json:"caCertPath" yaml:"ca_cert_path" env:"NETBOX_CA_CERT_PATH"`
	ClientCertPath string `json:"clientCertPath" yaml:"client_cert_path" env:"NETBOX_CLIENT_CERT_PATH"`
	ClientKeyPath  string `json:"clientKeyPath" yaml:"client_key_path" env:"NETBOX_CLIENT_KEY_PATH"`

	Timeout    int `json:"timeout" yaml:"timeout" env:"NETBOX_TIMEOUT"`
	MaxRetries int `json:"maxRetries" yaml:"max_retries" env:"NETBOX_MAX_RETRIES"`

	// OverfetchFactor widens the fetch limit when rows are discarded after
	// the fetch (circuit termination site).
	OverfetchFactor int `json:"overfetchFactor" yaml:"overfetch_factor" env:"NETBOX_OVERFETCH_FACTOR"`
}

// JournalConfig controls the SQLite query journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"NETBOX_MCP_JOURNAL_ENABLED"`
	Path    string `json:"path" yaml:"path" env:"NETBOX_MCP_JOURNAL_PATH"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	MetricsAddr    string `json:"metricsAddr" yaml:"metrics_addr" env:"NETBOX_MCP_METRICS_ADDR"`
	SingleInstance bool   `json:"singleInstance" yaml:"single_instance" env:"NETBOX_MCP_SINGLE_INSTANCE"`
	LockDir        string `json:"lockDir" yaml:"lock_dir" env:"NETBOX_MCP_LOCK_DIR"`
}

// ErrMissingCredentials is returned by Validate when the URL or token is unset.
var ErrMissingCredentials = errors.New("NETBOX_URL and NETBOX_TOKEN must be set")

// configPaths are searched in order; the first readable file wins.
var configPaths = []string{
	"config.yaml",
	"config.yml",
	"config.json",
	"/etc/netbox-mcp/config.yaml",
	"/etc/netbox-mcp/config.json",
}

// LoadConfig loads configuration from .env files, the environment and an
// optional config file. With no arguments the .env in the working directory
// is tried.
func LoadConfig(envFiles ...string) *Config {
	loadEnvFile(envFiles...)

	config := &Config{
		NetBox: NetBoxConfig{
			URL:             strings.TrimRight(getEnv("NETBOX_URL", ""), "/"),
			Token:           getEnv("NETBOX_TOKEN", ""),
			SSLVerify:       getEnvAsBool("NETBOX_SSL_VERIFY", true),
			CACertPath:      getEnv("NETBOX_CA_CERT_PATH", ""),
			ClientCertPath:  getEnv("NETBOX_CLIENT_CERT_PATH", ""),
			ClientKeyPath:   getEnv("NETBOX_CLIENT_KEY_PATH", ""),
			Timeout:         getEnvAsInt("NETBOX_TIMEOUT", 30),
			MaxRetries:      getEnvAsInt("NETBOX_MAX_RETRIES", 0),
			OverfetchFactor: getEnvAsInt("NETBOX_OVERFETCH_FACTOR", 3),
		},
		Journal: JournalConfig{
			Enabled: getEnvAsBool("NETBOX_MCP_JOURNAL_ENABLED", true),
			Path:    getEnv("NETBOX_MCP_JOURNAL_PATH", ""),
		},
		Server: ServerConfig{
			MetricsAddr:    getEnv("NETBOX_MCP_METRICS_ADDR", ""),
			SingleInstance: getEnvAsBool("NETBOX_MCP_SINGLE_INSTANCE", false),
			LockDir:        getEnv("NETBOX_MCP_LOCK_DIR", "/tmp"),
		},
	}

	if path, err := loadConfigFile(config, configPaths); err != nil {
		logger.New().Debug("Could not load config file: %v", err)
	} else {
		logger.New().Debug("Loaded config file %s", path)
	}

	return config
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.NetBox.URL == "" || c.NetBox.Token == "" {
		return ErrMissingCredentials
	}
	u, err := url.Parse(c.NetBox.URL)
	if err != nil {
		return fmt.Errorf("invalid NETBOX_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid NETBOX_URL %q: scheme must be http or https", c.NetBox.URL)
	}
	if c.NetBox.OverfetchFactor < 1 {
		return fmt.Errorf("overfetch factor must be at least 1, got %d", c.NetBox.OverfetchFactor)
	}
	return nil
}

func loadEnvFile(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logger.New().Debug("Could not load .env file: %v", err)
	}
}

// fileConfig mirrors Config with pointer booleans so that an absent key in
// the file does not override the environment.
type fileConfig struct {
	NetBox struct {
		URL             string `json:"url" yaml:"url"`
		Token           string `json:"token" yaml:"token"`
		SSLVerify       *bool  `json:"sslVerify" yaml:"ssl_verify"`
		CACertPath      string `json:"caCertPath" yaml:"ca_cert_path"`
		ClientCertPath  string `json:"clientCertPath" yaml:"client_cert_path"`
		ClientKeyPath   string `json:"clientKeyPath" yaml:"client_key_path"`
		Timeout         int    `json:"timeout" yaml:"timeout"`
		MaxRetries      *int   `json:"maxRetries" yaml:"max_retries"`
		OverfetchFactor int    `json:"overfetchFactor" yaml:"overfetch_factor"`
	} `json:"netbox" yaml:"netbox"`
	Journal struct {
		Enabled *bool  `json:"enabled" yaml:"enabled"`
		Path    string `json:"path" yaml:"path"`
	} `json:"journal" yaml:"journal"`
	Server struct {
		MetricsAddr    string `json:"metricsAddr" yaml:"metrics_addr"`
		SingleInstance *bool  `json:"singleInstance" yaml:"single_instance"`
		LockDir        string `json:"lockDir" yaml:"lock_dir"`
	} `json:"server" yaml:"server"`
}

// loadConfigFile reads the first config file found in paths and merges its
// non-empty values into config.
func loadConfigFile(config *Config, paths []string) (string, error) {
	var (
		data []byte
		path string
		err  error
	)
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			path = p
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("could not find config file in any location: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &fc)
	default:
		err = yaml.Unmarshal(data, &fc)
	}
	if err != nil {
		return path, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	nb := &config.NetBox
	if fc.NetBox.URL != "" {
		nb.URL = strings.TrimRight(fc.NetBox.URL, "/")
	}
	if fc.NetBox.Token != "" {
		nb.Token = fc.NetBox.Token
	}
	if fc.NetBox.SSLVerify != nil {
		nb.SSLVerify = *fc.NetBox.SSLVerify
	}
	if fc.NetBox.CACertPath != "" {
		nb.CACertPath = fc.NetBox.CACertPath
	}
	if fc.NetBox.ClientCertPath != "" {
		nb.ClientCertPath = fc.NetBox.ClientCertPath
	}
	if fc.NetBox.ClientKeyPath != "" {
		nb.ClientKeyPath = fc.NetBox.ClientKeyPath
	}
	if fc.NetBox.Timeout > 0 {
		nb.Timeout = fc.NetBox.Timeout
	}
	if fc.NetBox.MaxRetries != nil {
		nb.MaxRetries = *fc.NetBox.MaxRetries
	}
	if fc.NetBox.OverfetchFactor > 0 {
		nb.OverfetchFactor = fc.NetBox.OverfetchFactor
	}

	if fc.Journal.Enabled != nil {
		config.Journal.Enabled = *fc.Journal.Enabled
	}
	if fc.Journal.Path != "" {
		config.Journal.Path = fc.Journal.Path
	}

	if fc.Server.MetricsAddr != "" {
		config.Server.MetricsAddr = fc.Server.MetricsAddr
	}
	if fc.Server.SingleInstance != nil {
		config.Server.SingleInstance = *fc.Server.SingleInstance
	}
	if fc.Server.LockDir != "" {
		config.Server.LockDir = fc.Server.LockDir
	}

	return path, nil
}

// Helper function to get environment variable with default
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as int with default
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool accepts true/1/t/yes/on (any case) as true.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "t", "yes", "on":
			return true
		default:
			return false
		}
	}
	return defaultValue
}
