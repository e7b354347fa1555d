// Package datasource loads a site from the filesystem: the folio.yaml
// configuration, items under the content directory and layouts under the
// layouts directory.
package datasource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/folio/internal/ir"
)

// ConfigFile is the name of the configuration file at the site root.
const ConfigFile = "folio.yaml"

// DefaultTextExtensions lists the extensions loaded as text. Files with any
// other extension are binary.
var DefaultTextExtensions = []string{
	"adoc", "asciidoc", "atom", "coffee", "css", "cue", "erb", "haml",
	"handlebars", "hb", "htm", "html", "js", "json", "less", "markdown",
	"md", "ms", "mustache", "php", "rb", "rdoc", "sass", "scss", "slim",
	"svg", "tex", "tmpl", "txt", "xhtml", "xml", "yaml", "yml",
}

// PruneConfig configures removal of stale output files.
type PruneConfig struct {
	AutoPrune bool     `yaml:"auto_prune"`
	Exclude   []string `yaml:"exclude"`
}

// Config is the parsed folio.yaml. Relative directories are resolved
// against Root by the accessors.
type Config struct {
	OutputDir      string         `yaml:"output_dir"`
	TmpDir         string         `yaml:"tmp_dir"`
	ContentDir     string         `yaml:"content_dir"`
	LayoutsDir     string         `yaml:"layouts_dir"`
	RulesFile      string         `yaml:"rules_file"`
	TextExtensions []string       `yaml:"text_extensions"`
	Prune          PruneConfig    `yaml:"prune"`
	Attributes     map[string]any `yaml:"attributes"`

	// Root is the directory holding folio.yaml.
	Root string `yaml:"-"`
}

// DefaultConfig returns the configuration used when folio.yaml is absent.
func DefaultConfig(root string) Config {
	return Config{
		OutputDir:      "output",
		TmpDir:         filepath.Join("tmp", "folio"),
		ContentDir:     "content",
		LayoutsDir:     "layouts",
		RulesFile:      "rules.cue",
		TextExtensions: slices.Clone(DefaultTextExtensions),
		Prune:          PruneConfig{Exclude: []string{".git", ".hg", ".svn", "CVS"}},
		Root:           root,
	}
}

// LoadConfig reads folio.yaml from root. A missing file yields the
// defaults. Unknown keys are rejected.
func LoadConfig(root string) (Config, error) {
	cfg := DefaultConfig(root)
	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(root, data)
}

// ParseConfig parses folio.yaml content over the defaults.
func ParseConfig(root string, data []byte) (Config, error) {
	cfg := DefaultConfig(root)
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
	}
	cfg.Root = root
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for name, v := range map[string]string{
		"output_dir":  c.OutputDir,
		"tmp_dir":     c.TmpDir,
		"content_dir": c.ContentDir,
		"layouts_dir": c.LayoutsDir,
		"rules_file":  c.RulesFile,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	for i, ext := range c.TextExtensions {
		c.TextExtensions[i] = strings.TrimPrefix(strings.ToLower(ext), ".")
	}
	return nil
}

func (c Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// OutputPath returns the absolute output directory.
func (c Config) OutputPath() string { return c.resolve(c.OutputDir) }

// TmpPath returns the absolute temp directory.
func (c Config) TmpPath() string { return c.resolve(c.TmpDir) }

// ContentPath returns the absolute content directory.
func (c Config) ContentPath() string { return c.resolve(c.ContentDir) }

// LayoutsPath returns the absolute layouts directory.
func (c Config) LayoutsPath() string { return c.resolve(c.LayoutsDir) }

// RulesPath returns the absolute rules file path.
func (c Config) RulesPath() string { return c.resolve(c.RulesFile) }

// SiteConfig converts the attributes into the site configuration object.
func (c Config) SiteConfig() (ir.IRObject, error) {
	if len(c.Attributes) == 0 {
		return ir.IRObject{}, nil
	}
	obj, err := ir.ObjectFromMap(c.Attributes)
	if err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}
	return obj, nil
}

// IsText reports whether a file with extension ext (without dot) is loaded
// as text.
func (c Config) IsText(ext string) bool {
	return slices.Contains(c.TextExtensions, strings.ToLower(ext))
}
