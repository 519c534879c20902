package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/var/log/pyre/server.log")

	if cfg.LogPath != "/var/log/pyre/server.log" {
		t.Errorf("Unexpected log path: %q", cfg.LogPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %q", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestValidateRequiresLogPath(t *testing.T) {
	cfg := &ServerConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for missing log_path")
	}
}

func TestCriticalFileSetIncludesCanonicalNames(t *testing.T) {
	cfg := DefaultConfig("/var/log/pyre/server.log")
	cfg.CriticalFiles = []string{"requirements.txt"}

	set := cfg.CriticalFileSet()
	for _, name := range []string{ProjectConfigurationName, LocalConfigurationName, "requirements.txt"} {
		if _, ok := set[name]; !ok {
			t.Errorf("Critical file set missing %q", name)
		}
	}
}

func TestExtensionSetIncludesCanonicalSuffixes(t *testing.T) {
	cfg := DefaultConfig("/var/log/pyre/server.log")
	cfg.Extensions = []string{".pyx"}

	set := cfg.ExtensionSet()
	for _, ext := range []string{SourceSuffix, InterfaceSuffix, ".pyx"} {
		if _, ok := set[ext]; !ok {
			t.Errorf("Extension set missing %q", ext)
		}
	}
}

func TestRootFallsBackToWatchRoot(t *testing.T) {
	cfg := DefaultConfig("/var/log/pyre/server.log")
	cfg.WatchRoot = "/proj"
	if cfg.Root() != "/proj" {
		t.Errorf("Root() = %q, want /proj", cfg.Root())
	}

	cfg.AnalysisRoot = "/proj/src"
	if cfg.Root() != "/proj/src" {
		t.Errorf("Root() = %q, want /proj/src", cfg.Root())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")

	cfg := DefaultConfig("/var/log/pyre/server.log")
	cfg.WatchRoot = "/proj"
	cfg.CriticalFiles = []string{"setup.py"}
	cfg.Extensions = []string{".pyx"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LogPath != cfg.LogPath || loaded.WatchRoot != cfg.WatchRoot {
		t.Error("Round trip lost fields")
	}
	if len(loaded.CriticalFiles) != 1 || loaded.CriticalFiles[0] != "setup.py" {
		t.Errorf("Unexpected critical files: %v", loaded.CriticalFiles)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")

	cfg := &ServerConfig{LogLevel: "info"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected Load to reject config without log_path")
	}
}
