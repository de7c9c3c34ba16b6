package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/config"
)

// ResultCache manages cached optimization results.
type ResultCache struct {
	paths *config.Paths
}

// New creates a result cache rooted at the paths' cache directory.
func New(paths *config.Paths) *ResultCache {
	return &ResultCache{paths: paths}
}

type keyedSpec struct {
	Keyword       string        `json:"keyword"`
	Base          []string      `json:"base"`
	Compound      []string      `json:"compound"`
	CharRange     analyze.Range `json:"char_range"`
	BaseRange     analyze.Range `json:"base_range"`
	CompoundRange analyze.Range `json:"compound_range"`
	Ceiling       int           `json:"ceiling"`
	Salt          string        `json:"salt"`
}

// Key derives the cache key for text optimized against spec. Salt carries
// anything else that changes the output, such as the oracle and seed.
func Key(text string, spec *analyze.TargetSpec, salt string) string {
	encoded, _ := json.Marshal(keyedSpec{
		Keyword:       spec.Keyword,
		Base:          spec.Texts(analyze.BaseKind),
		Compound:      spec.Texts(analyze.CompoundKind),
		CharRange:     spec.CharRange,
		BaseRange:     spec.BaseRange,
		CompoundRange: spec.CompoundRange,
		Ceiling:       spec.Ceiling,
		Salt:          salt,
	})
	h := blake3.New()
	_, _ = h.Write(encoded)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Read retrieves a cached result and its metadata.
// Returns empty string and nil metadata if not found.
// If content exists but metadata is missing/corrupted, cleans up orphaned files.
func (c *ResultCache) Read(key string) (string, *Metadata, error) {
	content, err := os.ReadFile(c.paths.ResultFile(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, nil
		}
		return "", nil, err
	}

	meta, err := c.ReadMeta(key)
	if err != nil {
		_ = c.Clear(key)
		return "", nil, nil
	}

	return string(content), meta, nil
}

// ReadMeta retrieves only the metadata for a cached result.
func (c *ResultCache) ReadMeta(key string) (*Metadata, error) {
	data, err := os.ReadFile(c.paths.ResultMetaFile(key))
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// Write stores a result with metadata.
func (c *ResultCache) Write(key, content string, meta *Metadata) error {
	if err := os.MkdirAll(c.paths.ResultsDir(), config.DefaultDirMode); err != nil {
		return err
	}

	meta.Key = key
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	if err := os.WriteFile(c.paths.ResultFile(key), []byte(content), config.DefaultFileMode); err != nil {
		return err
	}

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.paths.ResultMetaFile(key), metaData, config.DefaultFileMode)
}

// Clear removes a cached result.
// Returns nil even if files don't exist (idempotent operation).
func (c *ResultCache) Clear(key string) error {
	if err := os.Remove(c.paths.ResultFile(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cached result: %w", err)
	}
	if err := os.Remove(c.paths.ResultMetaFile(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache metadata: %w", err)
	}
	return nil
}

// ClearAll removes every cached result.
func (c *ResultCache) ClearAll() error {
	if err := os.RemoveAll(c.paths.ResultsDir()); err != nil {
		return fmt.Errorf("failed to clear result cache: %w", err)
	}
	return nil
}

// ListCached returns the keys of all cached results.
func (c *ResultCache) ListCached() ([]string, error) {
	entries, err := os.ReadDir(c.paths.ResultsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var keys []string
	for _, entry := range entries {
		if name := entry.Name(); filepath.Ext(name) == ".txt" {
			keys = append(keys, strings.TrimSuffix(name, ".txt"))
		}
	}
	return keys, nil
}

// Dir returns the directory holding cached results.
func (c *ResultCache) Dir() string {
	return c.paths.ResultsDir()
}
