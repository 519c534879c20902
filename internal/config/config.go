// Package config holds the immutable server configuration supplied at
// daemon startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Canonical project configuration files that are always watched when a
// watch root is configured.
const (
	ProjectConfigurationName = ".pyre_configuration"
	LocalConfigurationName   = ".pyre_configuration.local"
)

// Canonical source and interface suffixes that are always watched.
const (
	SourceSuffix    = ".py"
	InterfaceSuffix = ".pyi"
)

// ServerConfig represents the daemon configuration. It is immutable for the
// process lifetime; the log path doubles as the logical server identifier
// from which the socket path is derived.
type ServerConfig struct {
	// LogPath identifies this server instance and receives its log output
	LogPath string `json:"log_path"`
	// WatchRoot enables the filesystem watcher when non-empty
	WatchRoot string `json:"watch_root,omitempty"`
	// CriticalFiles are extra basenames watched unconditionally
	CriticalFiles []string `json:"critical_files,omitempty"`
	// Extensions are extra file suffixes watched for changes
	Extensions []string `json:"extensions,omitempty"`
	// AnalysisRoot is the directory analyzed at startup; defaults to WatchRoot
	AnalysisRoot string `json:"analysis_root,omitempty"`
	// SocketPath overrides the derived socket path when non-empty
	SocketPath string `json:"socket_path,omitempty"`
	// LogLevel is one of debug, info, warn, error, none
	LogLevel string `json:"log_level,omitempty"`
}

// DefaultConfig returns a configuration with defaults applied for the given
// log path.
func DefaultConfig(logPath string) *ServerConfig {
	return &ServerConfig{
		LogPath:  logPath,
		LogLevel: "info",
	}
}

// Load reads a ServerConfig from a JSON file
func Load(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ServerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to a JSON file
func (c *ServerConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for required fields
func (c *ServerConfig) Validate() error {
	if c.LogPath == "" {
		return fmt.Errorf("log_path is required")
	}
	return nil
}

// Root returns the directory analyzed at startup
func (c *ServerConfig) Root() string {
	if c.AnalysisRoot != "" {
		return c.AnalysisRoot
	}
	return c.WatchRoot
}

// CriticalFileSet returns the basenames watched unconditionally. The two
// canonical configuration filenames are always included.
func (c *ServerConfig) CriticalFileSet() map[string]struct{} {
	set := map[string]struct{}{
		ProjectConfigurationName: {},
		LocalConfigurationName:   {},
	}
	for _, name := range c.CriticalFiles {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// ExtensionSet returns the file suffixes watched for changes. The canonical
// source and interface suffixes are always included.
func (c *ServerConfig) ExtensionSet() map[string]struct{} {
	set := map[string]struct{}{
		SourceSuffix:    {},
		InterfaceSuffix: {},
	}
	for _, ext := range c.Extensions {
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}
