package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/errors"
)

// TargetFile is the YAML form of an optimization target.
//
//	keyword: engine oil
//	base_units: [engine, oil]
//	compound_units: [engine oil]
//	char_range: {min: 800, max: 1200}
//	base_range: {min: 3, max: 6}
//	compound_range: {min: 2, max: 4}
type TargetFile struct {
	Keyword       string        `yaml:"keyword"`
	BaseUnits     []string      `yaml:"base_units,omitempty"`
	CompoundUnits []string      `yaml:"compound_units,omitempty"`
	CharRange     analyze.Range `yaml:"char_range"`
	BaseRange     analyze.Range `yaml:"base_range"`
	CompoundRange analyze.Range `yaml:"compound_range"`
	Ceiling       int           `yaml:"ceiling,omitempty"`

	// IncludeKeyword also tracks the keyword itself: as a compound unit when
	// it has several parts, as a base unit otherwise.
	IncludeKeyword bool `yaml:"include_keyword,omitempty"`
}

// LoadTargets reads a target file and builds a validated spec.
func LoadTargets(path string) (*analyze.TargetSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrTargetInvalid, "target file not found: "+path, "Pass an existing file with --targets")
		}
		return nil, errors.Wrap(errors.ErrTargetInvalid, "failed to read target file", "", err)
	}
	return ParseTargets(data)
}

// ParseTargets decodes target YAML and builds a validated spec.
func ParseTargets(data []byte) (*analyze.TargetSpec, error) {
	var tf TargetFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, errors.Wrap(errors.ErrTargetInvalid, "failed to parse target YAML", "Check target file syntax", err)
	}
	return tf.Spec()
}

// Spec converts the file into a validated spec. Without explicit base units
// the keyword's components are used.
func (tf *TargetFile) Spec() (*analyze.TargetSpec, error) {
	base := tf.BaseUnits
	if len(base) == 0 {
		base = analyze.KeywordComponents(tf.Keyword)
	}
	compound := tf.CompoundUnits

	if kw := strings.TrimSpace(tf.Keyword); tf.IncludeKeyword && kw != "" {
		if len(analyze.KeywordComponents(kw)) > 1 {
			compound = append(append([]string(nil), compound...), kw)
		} else {
			base = append(append([]string(nil), base...), kw)
		}
	}

	spec, err := analyze.NewTargetSpec(tf.Keyword, base, compound)
	if err != nil {
		return nil, err
	}
	spec.CharRange = tf.CharRange
	spec.BaseRange = tf.BaseRange
	spec.CompoundRange = tf.CompoundRange
	spec.Ceiling = tf.Ceiling

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
