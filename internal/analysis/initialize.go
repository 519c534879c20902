package analysis

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codefionn/pyrite/internal/config"
	"github.com/codefionn/pyrite/internal/logger"
	"github.com/codefionn/pyrite/internal/state"
)

// Initialize runs the full analysis pass and builds the first server state
// snapshot: derived analysis configuration, environment of tracked files,
// and the error index.
func (r *Runner) Initialize(cfg *config.ServerConfig, socketPath string) (*state.ServerState, error) {
	analysisCfg := DeriveConfig(cfg)

	env := state.NewEnvironment()
	index := state.NewErrorIndex()

	if analysisCfg.Root != "" {
		files, err := discoverSources(analysisCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to discover sources under %s: %w", analysisCfg.Root, err)
		}

		for _, path := range files {
			diags, err := r.check(path)
			if err != nil {
				return nil, fmt.Errorf("initial check failed for %s: %w", path, err)
			}
			env.Track(path)
			index.Add(path, diags...)
		}

		logger.Info("Initial analysis pass: %d files, %d diagnostics", env.Count(), index.Total())
	}

	return &state.ServerState{
		SocketPath:     socketPath,
		Config:         cfg,
		AnalysisConfig: analysisCfg,
		Environment:    env,
		Errors:         index,
	}, nil
}

// DeriveConfig maps the server configuration to the analysis configuration
func DeriveConfig(cfg *config.ServerConfig) *state.AnalysisConfig {
	extSet := cfg.ExtensionSet()
	extensions := make([]string, 0, len(extSet))
	for ext := range extSet {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)

	return &state.AnalysisConfig{
		Root:       cfg.Root(),
		Extensions: extensions,
	}
}

// discoverSources walks the analysis root collecting files with a matching
// suffix. Hidden directories are skipped.
func discoverSources(cfg *state.AnalysisConfig) ([]string, error) {
	var files []string

	err := filepath.WalkDir(cfg.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			name := entry.Name()
			if path != cfg.Root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		for _, ext := range cfg.Extensions {
			if strings.HasSuffix(entry.Name(), ext) {
				abs, absErr := filepath.Abs(path)
				if absErr != nil {
					abs = path
				}
				files = append(files, abs)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// readable reports whether a path exists as a regular, openable file
func readable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
