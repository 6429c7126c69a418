// Package config reads the modforge.yaml project file: where the schema
// lives, where generated code and built content go, the allocatable id
// ranges, and the optional container packaging metadata.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/modforge-dev/modforge/container"
	"github.com/modforge-dev/modforge/database"
)

// DefaultFile is the project file name looked up when none is given.
const DefaultFile = "modforge.yaml"

// Config is the parsed project file.
type Config struct {
	// Schema is the directory tree of XML schema files.
	Schema string `yaml:"schema"`
	// Output configures the generated code target.
	Output Output `yaml:"output"`
	// Database configures the built content directory.
	Database Database `yaml:"database"`
	// Container, when present, enables packaging on save.
	Container *Container `yaml:"container"`
	// Ranges declares the allocatable id spaces.
	Ranges Ranges `yaml:"ranges"`
}

// Output configures the generated code target directory and package.
type Output struct {
	Dir     string `yaml:"dir"`
	Package string `yaml:"package"`
}

// Database configures the built content directory.
type Database struct {
	Dir string `yaml:"dir"`
}

// Container carries the packaging metadata for the mod container.
type Container struct {
	Path         string `yaml:"path"`
	Name         string `yaml:"name"`
	GUID         string `yaml:"guid"`
	VersionMajor int32  `yaml:"version_major"`
	VersionMinor int32  `yaml:"version_minor"`
}

// Info converts the packaging metadata to the container identity tuple.
func (c *Container) Info() container.Info {
	return container.Info{
		Name:         c.Name,
		GUID:         c.GUID,
		VersionMajor: c.VersionMajor,
		VersionMinor: c.VersionMinor,
	}
}

// Range is one half-open id interval.
type Range struct {
	Start int32 `yaml:"start"`
	End   int32 `yaml:"end"`
}

// Ranges declares the default id pool and any per-kind dedicated pools.
type Ranges struct {
	Default []Range            `yaml:"default"`
	Kinds   map[string][]Range `yaml:"kinds"`
}

// Apply installs the declared ranges into a database.
func (r Ranges) Apply(db *database.DB) {
	for _, rg := range r.Default {
		db.AddRange(database.Range{Start: rg.Start, End: rg.End})
	}
	for kind, rgs := range r.Kinds {
		for _, rg := range rgs {
			db.AddRangeFor(kind, database.Range{Start: rg.Start, End: rg.End})
		}
	}
}

// Load reads and validates a project file. Relative directories are kept
// relative to the file's own directory, and defaults are filled in before
// validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	c.applyDefaults()
	c.resolve(filepath.Dir(path))
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyDefaults fills the conventional project layout and generates a GUID
// for containers that declare none.
func (c *Config) applyDefaults() {
	if c.Schema == "" {
		c.Schema = "schema"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "content"
	}
	if c.Output.Package == "" {
		c.Output.Package = filepath.Base(c.Output.Dir)
	}
	if c.Database.Dir == "" {
		c.Database.Dir = "build"
	}
	if c.Container != nil && c.Container.GUID == "" {
		c.Container.GUID = uuid.NewString()
	}
}

func (c *Config) resolve(base string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Schema = join(c.Schema)
	c.Output.Dir = join(c.Output.Dir)
	c.Database.Dir = join(c.Database.Dir)
	if c.Container != nil {
		c.Container.Path = join(c.Container.Path)
	}
}

// Validate checks the declared values for internal consistency.
func (c *Config) Validate() error {
	for _, r := range c.Ranges.Default {
		if r.End <= r.Start {
			return NewConfigError("ranges.default", fmt.Sprintf("[%d, %d)", r.Start, r.End), "range end must be greater than start")
		}
	}
	for kind, rgs := range c.Ranges.Kinds {
		for _, r := range rgs {
			if r.End <= r.Start {
				return NewConfigError("ranges.kinds."+kind, fmt.Sprintf("[%d, %d)", r.Start, r.End), "range end must be greater than start")
			}
		}
	}
	if c.Container != nil {
		if c.Container.Path == "" {
			return NewConfigError("container.path", nil, "cannot be empty when container packaging is enabled")
		}
		if c.Container.Name == "" {
			return NewConfigError("container.name", nil, "cannot be empty when container packaging is enabled")
		}
		if _, err := uuid.Parse(c.Container.GUID); err != nil {
			return NewConfigError("container.guid", c.Container.GUID, "not a valid UUID")
		}
	}
	return nil
}
