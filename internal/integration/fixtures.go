package integration

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/keyfit/internal/config"
	"github.com/HartBrook/keyfit/internal/optimize"
)

// Fixture represents a test scenario loaded from YAML.
type Fixture struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Setup       FixtureSetup      `yaml:"setup"`
	Assertions  FixtureAssertions `yaml:"assertions"`
}

// FixtureSetup defines the document, its targets and the environment.
type FixtureSetup struct {
	Text    string             `yaml:"text"`
	Targets *config.TargetFile `yaml:"targets"`
	Config  *ConfigSetup       `yaml:"config"`

	// Oracle scripts rewrite replies by sentence. Unlisted sentences come
	// back unchanged.
	Oracle map[string]string `yaml:"oracle"`
}

// ConfigSetup defines the keyfit config.yaml content.
type ConfigSetup struct {
	MaxIterations   int                 `yaml:"max_iterations"`
	HardCapAttempts int                 `yaml:"hard_cap_attempts"`
	Seed            uint64              `yaml:"seed"`
	Lexicon         map[string][]string `yaml:"lexicon"`
	Fillers         []string            `yaml:"fillers"`
}

// FixtureAssertions defines what to verify.
type FixtureAssertions struct {
	Status            string         `yaml:"status"`
	FullyOptimized    *bool          `yaml:"fully_optimized"`
	Unchanged         bool           `yaml:"unchanged"`
	Text              string         `yaml:"text"`
	Contains          []string       `yaml:"contains"`
	NotContains       []string       `yaml:"not_contains"`
	Units             map[string]int `yaml:"units"`
	Unsatisfied       []string       `yaml:"unsatisfied"`
	CeilingViolations *int           `yaml:"ceiling_violations"`
	OracleCalls       *int           `yaml:"oracle_calls"`
	MaxChars          int            `yaml:"max_chars"`
	MinChars          int            `yaml:"min_chars"`
}

var statuses = map[string]bool{
	string(optimize.StatusConverged):       true,
	string(optimize.StatusStuck):           true,
	string(optimize.StatusBudgetExhausted): true,
}

// LoadFixture loads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, err
	}

	if err := fixture.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture %s: %w", path, err)
	}

	return &fixture, nil
}

// Validate checks that the fixture has all required fields.
func (f *Fixture) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("missing required field: name")
	}
	if f.Setup.Text == "" {
		return fmt.Errorf("missing required field: setup.text")
	}
	if f.Setup.Targets == nil {
		return fmt.Errorf("missing required field: setup.targets")
	}
	if s := f.Assertions.Status; s != "" && !statuses[s] {
		return fmt.Errorf("unknown status %q", s)
	}
	return nil
}

// LoadAllFixtures loads all fixtures from a directory.
func LoadAllFixtures(dir string) ([]*Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var fixtures []*Fixture
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".yaml" && filepath.Ext(name) != ".yml" {
			continue
		}

		fixture, err := LoadFixture(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fixture)
	}

	return fixtures, nil
}

// ToConfig converts fixture config setup to a config.Config. Unset fields
// keep their defaults.
func (c *ConfigSetup) ToConfig() *config.Config {
	cfg := config.Default()
	if c == nil {
		return cfg
	}

	if c.MaxIterations > 0 {
		cfg.Optimizer.MaxIterations = c.MaxIterations
	}
	if c.HardCapAttempts > 0 {
		cfg.Optimizer.HardCapAttempts = c.HardCapAttempts
	}
	if c.Seed > 0 {
		cfg.Optimizer.Seed = c.Seed
	}
	cfg.Lexicon = c.Lexicon
	cfg.Fillers = c.Fillers

	return cfg
}

// ApplySetup writes the fixture's config and targets into env and returns
// the target file path.
func ApplySetup(env *TestEnv, name string, setup FixtureSetup) (string, error) {
	if err := env.SetupConfig(setup.Config.ToConfig()); err != nil {
		return "", err
	}
	return env.SetupTargets(name, setup.Targets)
}
