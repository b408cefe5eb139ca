// Package config loads the doxetl configuration file.
//
// A Config is built once, at startup, and passed explicitly to whatever needs
// it. Relative paths are resolved against the directory of the config file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/doxetl/internal/audit"
	"github.com/roach88/doxetl/internal/definitions"
	"github.com/roach88/doxetl/internal/dialect"
)

// Defaults.
const (
	DefaultAppName         = "doxetl"
	DefaultJobName         = "dox-etl"
	DefaultAuditDB         = "doxetl_audit.db"
	DefaultStreamChunkSize = 5000
)

// LogConfig configures the log sinks.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Config is the process configuration.
type Config struct {
	AppName     string            `yaml:"app_name"`
	JobName     string            `yaml:"job_name"`
	Environment audit.Environment `yaml:"environment"`

	DefinitionsFile string `yaml:"definitions_file"`
	QueriesFile     string `yaml:"queries_file"`
	QueriesRoot     string `yaml:"queries_root"`

	AuditDB       dialect.Descriptor   `yaml:"audit_db"`
	SourceDBs     []dialect.Descriptor `yaml:"source_dbs"`
	SourceDBsFile string               `yaml:"source_dbs_file"`

	// StepQueries maps a step key to the query pipeline it runs.
	StepQueries map[string]string `yaml:"step_queries"`

	Log             LogConfig `yaml:"log"`
	StreamChunkSize int       `yaml:"stream_chunk_size"`

	// dir is the directory of the loaded file.
	dir string
}

// Load reads, overrides from the environment, resolves and validates the
// config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.dir = filepath.Dir(abs)

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.resolvePaths()

	if cfg.SourceDBsFile != "" {
		extra, err := loadDescriptors(cfg.SourceDBsFile)
		if err != nil {
			return nil, err
		}
		for _, d := range extra {
			cfg.SourceDBs = append(cfg.SourceDBs, cfg.resolveDescriptor(d))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a config document and fills defaults. Unknown fields are
// rejected. Paths are left as written.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config is empty")
		}
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	if c.JobName == "" {
		c.JobName = DefaultJobName
	}
	if c.Environment == "" {
		c.Environment = audit.EnvDev
	}
	if c.AuditDB.Type == "" {
		c.AuditDB = dialect.Descriptor{Name: "audit", Type: dialect.TypeSQLite, Database: DefaultAuditDB}
	}
	if c.StreamChunkSize == 0 {
		c.StreamChunkSize = DefaultStreamChunkSize
	}
}

func (c *Config) applyEnv() error {
	c.Environment = audit.Environment(envString(EnvEnvironment, string(c.Environment)))
	c.Log.Level = envString(EnvLogLevel, c.Log.Level)
	c.Log.Format = envString(EnvLogFormat, c.Log.Format)
	c.Log.File = envString(EnvLogFile, c.Log.File)
	if path := envString(EnvAuditDB, ""); path != "" {
		c.AuditDB = dialect.Descriptor{Name: "audit", Type: dialect.TypeSQLite, Database: path}
	}
	n, err := envInt(EnvStreamChunkSize, c.StreamChunkSize)
	if err != nil {
		return err
	}
	c.StreamChunkSize = n
	return nil
}

func (c *Config) resolvePaths() {
	c.DefinitionsFile = c.abs(c.DefinitionsFile)
	c.QueriesFile = c.abs(c.QueriesFile)
	c.QueriesRoot = c.abs(c.QueriesRoot)
	c.SourceDBsFile = c.abs(c.SourceDBsFile)
	c.Log.File = c.abs(c.Log.File)
	c.AuditDB = c.resolveDescriptor(c.AuditDB)
	for i, d := range c.SourceDBs {
		c.SourceDBs[i] = c.resolveDescriptor(d)
	}
}

// resolveDescriptor makes a sqlite database path absolute.
func (c *Config) resolveDescriptor(d dialect.Descriptor) dialect.Descriptor {
	if d.Type == dialect.TypeSQLite {
		d.Database = c.abs(d.Database)
	}
	return d
}

func (c *Config) abs(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Dir is the directory the config was loaded from.
func (c *Config) Dir() string { return c.dir }

// Validate checks the config for errors that would stop a run.
func (c *Config) Validate() error {
	var errs []error
	if c.DefinitionsFile == "" {
		errs = append(errs, errors.New("definitions_file is required"))
	}
	if c.QueriesFile == "" {
		errs = append(errs, errors.New("queries_file is required"))
	}
	if c.QueriesRoot == "" {
		errs = append(errs, errors.New("queries_root is required"))
	}

	env, err := audit.ParseEnvironment(string(c.Environment))
	if err != nil {
		errs = append(errs, err)
	} else {
		c.Environment = env
	}

	if c.StreamChunkSize < 1 {
		errs = append(errs, fmt.Errorf("stream_chunk_size must be positive, got %d", c.StreamChunkSize))
	}

	seen := make(map[string]bool, len(c.SourceDBs))
	for i, d := range c.SourceDBs {
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("source_dbs[%d]: name is required", i))
		case seen[d.Name]:
			errs = append(errs, fmt.Errorf("source_dbs[%d]: duplicate name %q", i, d.Name))
		}
		if d.Type == "" {
			errs = append(errs, fmt.Errorf("source_dbs[%d]: type is required", i))
		}
		seen[d.Name] = true
	}

	if len(errs) > 0 {
		return &ValidationError{Errs: errs}
	}
	return nil
}

// ValidateStepQueries checks that every step_queries entry names a step in
// defs and one of pipelines.
func (c *Config) ValidateStepQueries(defs *definitions.Registry, pipelines []string) error {
	known := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		known[p] = true
	}

	var errs []error
	for _, step := range slices.Sorted(maps.Keys(c.StepQueries)) {
		pipeline := c.StepQueries[step]
		if _, ok := defs.StepByKey(step); !ok {
			errs = append(errs, fmt.Errorf("step_queries: unknown step %q", step))
		}
		if !known[pipeline] {
			errs = append(errs, fmt.Errorf("step_queries[%s]: unknown query pipeline %q", step, pipeline))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errs: errs}
	}
	return nil
}

// SourceDB returns the source database called name.
func (c *Config) SourceDB(name string) (dialect.Descriptor, error) {
	for _, d := range c.SourceDBs {
		if d.Name == name {
			return d, nil
		}
	}
	return dialect.Descriptor{}, fmt.Errorf("unknown source database %q", name)
}

// Descriptors returns the audit database followed by every source database.
func (c *Config) Descriptors() []dialect.Descriptor {
	out := make([]dialect.Descriptor, 0, len(c.SourceDBs)+1)
	out = append(out, c.AuditDB)
	return append(out, c.SourceDBs...)
}

// loadDescriptors reads a YAML (or JSON) list of database descriptors.
func loadDescriptors(path string) ([]dialect.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source_dbs_file: %w", err)
	}
	var out []dialect.Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse source_dbs_file %s: %w", path, err)
	}
	return out, nil
}
