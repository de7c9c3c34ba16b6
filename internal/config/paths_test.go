package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewPaths(t *testing.T) {
	home := os.Getenv("HOME")
	paths := NewPaths()

	if want := filepath.Join(home, ".config", "keyfit"); paths.ConfigDir != want {
		t.Errorf("ConfigDir = %q, want %q", paths.ConfigDir, want)
	}
	if want := filepath.Join(home, ".cache", "keyfit"); paths.CacheDir != want {
		t.Errorf("CacheDir = %q, want %q", paths.CacheDir, want)
	}
	if want := filepath.Join(home, ".config", "keyfit", "config.yaml"); paths.ConfigFile != want {
		t.Errorf("ConfigFile = %q, want %q", paths.ConfigFile, want)
	}
}

func TestPaths_Overrides(t *testing.T) {
	paths := NewPathsWithOverrides("/tmp/cfg", "/tmp/cache")

	if paths.HistoryDB != filepath.Join("/tmp/cache", "history.db") {
		t.Errorf("HistoryDB = %q", paths.HistoryDB)
	}
	if paths.TargetsDir != filepath.Join("/tmp/cfg", "targets") {
		t.Errorf("TargetsDir = %q", paths.TargetsDir)
	}
}

func TestPaths_ResultFiles(t *testing.T) {
	paths := NewPathsWithOverrides("/tmp/cfg", "/tmp/cache")

	got := paths.ResultFile("abc123")
	if !strings.HasSuffix(got, filepath.Join("results", "abc123.txt")) {
		t.Errorf("ResultFile() = %q, want suffix results/abc123.txt", got)
	}

	got = paths.ResultMetaFile("abc123")
	if !strings.HasSuffix(got, "abc123.meta.json") {
		t.Errorf("ResultMetaFile() = %q, want suffix abc123.meta.json", got)
	}
}

func TestPaths_TargetFile(t *testing.T) {
	paths := NewPathsWithOverrides("/tmp/cfg", "/tmp/cache")

	tests := []struct {
		name string
		want string
	}{
		{"engine-oil", filepath.Join("/tmp/cfg", "targets", "engine-oil.yaml")},
		{"engine-oil.yaml", "engine-oil.yaml"},
		{"targets/engine-oil.yml", "targets/engine-oil.yml"},
		{"./spec", "./spec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paths.TargetFile(tt.name); got != tt.want {
				t.Errorf("TargetFile(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
