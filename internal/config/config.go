package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"specgraph/internal/crawler"
	"specgraph/internal/declaration"
	"specgraph/internal/index"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "specgraph.yaml"

type Config struct {
	Project struct {
		Root string `yaml:"root"`
	} `yaml:"project"`
	Markers struct {
		Tag       string `yaml:"tag"`       // struct tag key holding "ignore"
		Ignore    string `yaml:"ignore"`    // embedded type that ignores a whole type
		Behaviors string `yaml:"behaviors"` // embedded type marking a behaviors type
	} `yaml:"markers"`
	Containers struct {
		Specification string `yaml:"specification"`
		Behavior      string `yaml:"behavior"`
	} `yaml:"containers"`
	Scan struct {
		Tests   bool     `yaml:"tests"`
		Workers int      `yaml:"workers"`
		Ignore  []string `yaml:"ignore"` // doublestar patterns
	} `yaml:"scan"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	markers := declaration.DefaultMarkers()
	cfg.Markers.Tag = markers.TagKey
	cfg.Markers.Ignore = markers.IgnoreMarker
	cfg.Markers.Behaviors = markers.BehaviorsMarker
	opts := index.DefaultOptions()
	cfg.Containers.Specification = opts.SpecificationContainer
	cfg.Containers.Behavior = opts.BehaviorContainer
	cfg.Scan.Tests = true
	cfg.Scan.Ignore = append([]string(nil), crawler.DefaultIgnored...)
	cfg.Storage.Path = "specgraph.db"
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("SPECGRAPH_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if db := os.Getenv("SPECGRAPH_DB"); db != "" {
		cfg.Storage.Path = db
	}
	if level := os.Getenv("SPECGRAPH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if tests := os.Getenv("SPECGRAPH_TESTS"); tests != "" {
		v, err := strconv.ParseBool(tests)
		if err != nil {
			return nil, fmt.Errorf("invalid SPECGRAPH_TESTS: %w", err)
		}
		cfg.Scan.Tests = v
	}

	return cfg, nil
}

// DeclarationMarkers returns the marker names readers look for.
func (c *Config) DeclarationMarkers() declaration.Markers {
	return declaration.Markers{
		TagKey:          c.Markers.Tag,
		IgnoreMarker:    c.Markers.Ignore,
		BehaviorsMarker: c.Markers.Behaviors,
	}
}

func (c *Config) IndexOptions() index.Options {
	return index.Options{
		SpecificationContainer: c.Containers.Specification,
		BehaviorContainer:      c.Containers.Behavior,
	}
}

// CrawlerOptions returns the crawler settings of the scan section.
func (c *Config) CrawlerOptions() []crawler.Option {
	opts := []crawler.Option{crawler.WithTests(c.Scan.Tests), crawler.WithIgnored(c.Scan.Ignore)}
	if c.Scan.Workers > 0 {
		opts = append(opts, crawler.WithWorkers(c.Scan.Workers))
	}
	return opts
}
