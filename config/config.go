// Package config provides configuration loading and management for semgraph.
package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	ssconfig "github.com/c360studio/semstreams/config"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semgraph/export"
	"github.com/c360studio/semgraph/graph"
	"github.com/c360studio/semgraph/typemap"
	"github.com/c360studio/semgraph/vocabulary/nuget"
)

// Config represents the complete semgraph configuration
type Config struct {
	Canon        CanonConfig       `yaml:"canon"`
	Flatten      FlattenConfig     `yaml:"flatten"`
	TypeMappings []typemap.Mapping `yaml:"typeMappings"`
	Namespaces   map[string]string `yaml:"namespaces"`
	Output       OutputConfig      `yaml:"output"`
	NATS         NATSConfig        `yaml:"nats"`
	Watch        WatchConfig       `yaml:"watch"`
}

// CanonConfig configures canonical IRI minting
type CanonConfig struct {
	// BaseAddress is the absolute IRI canonical IRIs are minted under
	BaseAddress string `yaml:"baseAddress"`
	// RootClass is the class whose typed subjects are canonicalization roots
	RootClass string `yaml:"rootClass"`
	// KeyPredicates are the predicate IRIs whose values form the root key
	KeyPredicates []string `yaml:"keyPredicates"`
	// KeySeparator joins root key parts (default: ".")
	KeySeparator string `yaml:"keySeparator"`
	// IndexedSiblings gives members of a collection distinct IRIs. Nil
	// leaves the choice to earlier layers (default: off).
	IndexedSiblings *bool `yaml:"indexedSiblings,omitempty"`
	// Workers bounds concurrent root traversals (0 = GOMAXPROCS)
	Workers int `yaml:"workers"`
}

// Indexed reports whether collection members get distinct IRIs.
func (c CanonConfig) Indexed() bool {
	return c.IndexedSiblings != nil && *c.IndexedSiblings
}

// Bool returns a pointer to v, for optional settings.
func Bool(v bool) *bool { return &v }

// FlattenConfig configures the JSON record flattener
type FlattenConfig struct {
	Vocab          string `yaml:"vocab"`
	TypeProperty   string `yaml:"typeProperty"`
	ValuesProperty string `yaml:"valuesProperty"`
	IDProperty     string `yaml:"idProperty"`
	// PreserveCase keeps property names as written instead of lower camel
	PreserveCase  bool     `yaml:"preserveCase"`
	IRIProperties []string `yaml:"iriProperties"`
}

// OutputConfig configures serialization
type OutputConfig struct {
	// Format is turtle, ntriples or jsonld
	Format string `yaml:"format"`
	// Profile is full or minimal
	Profile string `yaml:"profile"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = do not publish)
	URL string `yaml:"url"`
	// Subject is the ingest subject
	Subject string `yaml:"subject"`
	// JetStream publishes through a stream (the subject must be bound to one)
	JetStream bool `yaml:"jetstream"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is the quiet period before a changed file is reprocessed
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Canon: CanonConfig{
			BaseAddress:   nuget.DefaultBaseAddress,
			RootClass:     nuget.ClassPackage,
			KeyPredicates: []string{nuget.PropID, nuget.PropVersion},
			KeySeparator:  ".",
		},
		Flatten: FlattenConfig{
			Vocab:          nuget.Namespace,
			TypeProperty:   "$type",
			ValuesProperty: "$values",
			IDProperty:     "@id",
			IRIProperties:  []string{"licenseUri"},
		},
		TypeMappings: []typemap.Mapping{
			{External: nuget.TypeNamePackage, Canonical: nuget.ClassPackage},
			{External: nuget.TypeNameDependencyGroup, Canonical: nuget.ClassDependencyGroup},
			{External: nuget.TypeNameDependency, Canonical: nuget.ClassDependency},
		},
		Namespaces: export.DefaultPrefixes(),
		Output: OutputConfig{
			Format:  string(export.FormatTurtle),
			Profile: string(export.ProfileFull),
		},
		NATS: NATSConfig{
			URL:     "",
			Subject: graph.GraphIngestSubject,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.Canon.BaseAddress)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("canon.baseAddress must be an absolute IRI, got %q", c.Canon.BaseAddress)
	}
	if u.Fragment != "" {
		return errors.New("canon.baseAddress must not contain a fragment")
	}
	if len(c.Canon.KeyPredicates) == 0 {
		return errors.New("canon.keyPredicates is required")
	}
	if c.Canon.KeySeparator == "" {
		return errors.New("canon.keySeparator is required")
	}
	if c.Canon.Workers < 0 {
		return errors.New("canon.workers must not be negative")
	}
	if c.Canon.RootClass == "" {
		return errors.New("canon.rootClass is required")
	}
	if !slices.ContainsFunc(c.TypeMappings, func(m typemap.Mapping) bool { return m.Canonical == c.Canon.RootClass }) {
		return fmt.Errorf("canon.rootClass %s has no type mapping", c.Canon.RootClass)
	}
	for i, m := range c.TypeMappings {
		if m.External == "" || m.Canonical == "" {
			return fmt.Errorf("typeMappings[%d] needs both external and canonical", i)
		}
	}
	if c.Flatten.Vocab == "" {
		return errors.New("flatten.vocab is required")
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if _, ok := export.Profiles[export.Profile(c.Output.Profile)]; !ok {
		return fmt.Errorf("output.profile: unknown profile %q", c.Output.Profile)
	}
	if c.Watch.Debounce < 0 {
		return errors.New("watch.debounce must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := readYAML(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// loadLayer reads a YAML file into an empty Config so that only the keys the
// file sets are non-zero.
func loadLayer(path string) (*Config, error) {
	config := &Config{}
	if err := readYAML(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// readYAML decodes a config file into config after expanding ${VAR} and
// ${VAR:-default} references.
func readYAML(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := ssconfig.ExpandEnvWithDefaults(string(data))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Canon
	if other.Canon.BaseAddress != "" {
		c.Canon.BaseAddress = other.Canon.BaseAddress
	}
	if other.Canon.RootClass != "" {
		c.Canon.RootClass = other.Canon.RootClass
	}
	if len(other.Canon.KeyPredicates) > 0 {
		c.Canon.KeyPredicates = other.Canon.KeyPredicates
	}
	if other.Canon.KeySeparator != "" {
		c.Canon.KeySeparator = other.Canon.KeySeparator
	}
	if other.Canon.IndexedSiblings != nil {
		c.Canon.IndexedSiblings = Bool(*other.Canon.IndexedSiblings)
	}
	if other.Canon.Workers != 0 {
		c.Canon.Workers = other.Canon.Workers
	}

	// Flatten
	if other.Flatten.Vocab != "" {
		c.Flatten.Vocab = other.Flatten.Vocab
	}
	if other.Flatten.TypeProperty != "" {
		c.Flatten.TypeProperty = other.Flatten.TypeProperty
	}
	if other.Flatten.ValuesProperty != "" {
		c.Flatten.ValuesProperty = other.Flatten.ValuesProperty
	}
	if other.Flatten.IDProperty != "" {
		c.Flatten.IDProperty = other.Flatten.IDProperty
	}
	if other.Flatten.PreserveCase {
		c.Flatten.PreserveCase = true
	}
	if len(other.Flatten.IRIProperties) > 0 {
		c.Flatten.IRIProperties = other.Flatten.IRIProperties
	}

	// Type mappings replace the whole list
	if len(other.TypeMappings) > 0 {
		c.TypeMappings = other.TypeMappings
	}

	// Namespaces add to or override individual prefixes
	if len(other.Namespaces) > 0 {
		if c.Namespaces == nil {
			c.Namespaces = make(map[string]string, len(other.Namespaces))
		}
		maps.Copy(c.Namespaces, other.Namespaces)
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Profile != "" {
		c.Output.Profile = other.Output.Profile
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
	if other.NATS.JetStream {
		c.NATS.JetStream = true
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}
