// Package config loads scanner configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mpyw/useaddall/internal/report"
)

// DefaultFile is the file name looked up next to the scan root when no
// explicit config path is given.
const DefaultFile = ".useaddall.yaml"

// Config is the scanner configuration. Build values with Default, Parse
// or Load; exclusion patterns are compiled while parsing.
type Config struct {
	// Severity assigned to findings: low, normal or high.
	Severity report.Severity `yaml:"severity"`
	// Classpath lists directories and jars consulted for supertypes
	// that are not part of the scanned classes.
	Classpath []string `yaml:"classpath"`
	// Exclude holds internal-name globs for classes to skip. A *
	// matches within one /-separated segment, ** crosses segments.
	Exclude []string `yaml:"exclude"`
	// Workers caps concurrent class analyses. Zero means one per CPU.
	Workers int `yaml:"workers"`

	excludes []*regexp.Regexp
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{Severity: report.SeverityNormal}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads DefaultFile from dir, falling back to Default when
// the file does not exist.
func LoadDefault(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, DefaultFile))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes a YAML document. Unknown keys are rejected; an empty
// document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the settings and compiles the exclude patterns.
// Parse runs it automatically; call it again after mutating Exclude.
func (c *Config) Validate() error {
	switch c.Severity {
	case report.SeverityLow, report.SeverityNormal, report.SeverityHigh:
	case "":
		c.Severity = report.SeverityNormal
	default:
		return fmt.Errorf("unknown severity %q", c.Severity)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	c.excludes = c.excludes[:0]
	for _, pat := range c.Exclude {
		re, err := compileGlob(pat)
		if err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pat, err)
		}
		c.excludes = append(c.excludes, re)
	}
	return nil
}

// WorkerCount resolves the workers setting to a concrete parallelism.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Excluded reports whether the internal class name matches any exclude
// pattern.
func (c *Config) Excluded(className string) bool {
	for _, re := range c.excludes {
		if re.MatchString(className) {
			return true
		}
	}
	return false
}

// compileGlob translates an internal-name glob into a regexp.
func compileGlob(pat string) (*regexp.Regexp, error) {
	if pat == "" {
		return nil, errors.New("empty pattern")
	}
	var sb strings.Builder
	sb.WriteByte('^')
	for i := 0; i < len(pat); i++ {
		if pat[i] != '*' {
			sb.WriteString(regexp.QuoteMeta(string(pat[i])))
			continue
		}
		if i+1 < len(pat) && pat[i+1] == '*' {
			sb.WriteString(".*")
			i++
		} else {
			sb.WriteString("[^/]*")
		}
	}
	sb.WriteByte('$')
	return regexp.Compile(sb.String())
}
