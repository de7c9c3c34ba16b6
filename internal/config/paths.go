package config

import (
	"os"
	"path/filepath"
)

// File permission constants for consistent file creation.
const (
	DefaultFileMode = 0644
	DefaultDirMode  = 0755
)

// Paths provides all keyfit-related filesystem paths.
type Paths struct {
	ConfigDir  string // ~/.config/keyfit
	CacheDir   string // ~/.cache/keyfit
	ConfigFile string // ~/.config/keyfit/config.yaml
	TargetsDir string // ~/.config/keyfit/targets
	HistoryDB  string // ~/.cache/keyfit/history.db
}

// NewPaths creates Paths using ~/.config and ~/.cache directories.
// We use these paths explicitly for cross-platform consistency rather than
// platform-specific defaults (like ~/Library/Application Support on macOS).
func NewPaths() *Paths {
	home := os.Getenv("HOME")
	return NewPathsWithOverrides(
		filepath.Join(home, ".config", "keyfit"),
		filepath.Join(home, ".cache", "keyfit"),
	)
}

// NewPathsWithOverrides allows overriding directories for testing.
func NewPathsWithOverrides(configDir, cacheDir string) *Paths {
	return &Paths{
		ConfigDir:  configDir,
		CacheDir:   cacheDir,
		ConfigFile: filepath.Join(configDir, "config.yaml"),
		TargetsDir: filepath.Join(configDir, "targets"),
		HistoryDB:  filepath.Join(cacheDir, "history.db"),
	}
}

// ResultsDir returns the directory holding cached optimization results.
func (p *Paths) ResultsDir() string {
	return filepath.Join(p.CacheDir, "results")
}

// ResultFile returns the path of the cached text for a cache key.
func (p *Paths) ResultFile(key string) string {
	return filepath.Join(p.ResultsDir(), key+".txt")
}

// ResultMetaFile returns the path of the metadata sidecar for a cache key.
func (p *Paths) ResultMetaFile(key string) string {
	return filepath.Join(p.ResultsDir(), key+".meta.json")
}

// TargetFile resolves a target name to a file. Names with a path separator
// or a .yaml/.yml extension are used as given; bare names are looked up in
// TargetsDir.
func (p *Paths) TargetFile(name string) string {
	ext := filepath.Ext(name)
	if filepath.Base(name) != name || ext == ".yaml" || ext == ".yml" {
		return name
	}
	return filepath.Join(p.TargetsDir, name+".yaml")
}
