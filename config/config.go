// Package config provides configuration loading for the graphwire engine,
// its collaborators and the daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/codec"
	"xdao.co/graphwire/compliance"
	"xdao.co/graphwire/lists"
)

// Config represents the complete graphwire configuration
type Config struct {
	Engine     Engine     `yaml:"engine"`
	Notary     Notary     `yaml:"notary"`
	KeyService KeyService `yaml:"keyservice"`
	Archive    Archive    `yaml:"archive"`
	// Listen is the daemon's gRPC address.
	Listen string `yaml:"listen"`
	// MetricsListen serves Prometheus metrics over HTTP when set.
	MetricsListen string `yaml:"metrics_listen"`
}

// Engine configures serialization defaults
type Engine struct {
	// Format is the text format for documents and reference payloads
	Format string `yaml:"format"`
	// ListEncoding is the canonical list encoding (linked, indexed, itemized, raw-blob)
	ListEncoding string `yaml:"list_encoding"`
	// PreserveListEncoding re-serializes parsed lists in the encoding they arrived in
	PreserveListEncoding bool `yaml:"preserve_list_encoding"`
	// HashAlgorithm is the reference payload multihash (sha2-256, sha2-512, sha3-256)
	HashAlgorithm string `yaml:"hash_algorithm"`
	// ReferencePrefix is prepended to generated reference identifiers
	ReferencePrefix string `yaml:"reference_prefix"`
	// Compliance is strict or permissive
	Compliance string `yaml:"compliance"`
}

// Notary configures the notary client and store
type Notary struct {
	// Address of a remote notary; empty uses the local store
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
	// TTL bounds how long deposits are kept; zero keeps them forever
	TTL time.Duration `yaml:"ttl"`
	// Driver is memory or sqlite
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// KeyService configures the key service client and server
type KeyService struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
	// Users maps user names to the passwords accepted for uploads
	Users map[string]string `yaml:"users"`
}

// Archive configures the content-addressed payload archive
type Archive struct {
	// Dir is a localfs CAS root; empty disables archiving
	Dir string `yaml:"dir"`
	// Remote is a gRPC CAS address consulted after Dir
	Remote string `yaml:"remote"`
	// WritePolicy is first (write Dir only, copy remote reads into it) or
	// all (write every backend at once)
	WritePolicy string `yaml:"write_policy"`
	// Copies is how many backends must accept a payload under the all
	// policy; zero means every backend
	Copies int `yaml:"copies"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Engine: Engine{
			Format:          string(codec.FormatTurtle),
			ListEncoding:    lists.Indexed.String(),
			HashAlgorithm:   string(cidutil.SHA2_256),
			ReferencePrefix: "urn:uuid:",
			Compliance:      compliance.Permissive.String(),
		},
		Notary: Notary{
			Timeout: 5 * time.Second,
			TTL:     24 * time.Hour,
			Driver:  "memory",
		},
		KeyService: KeyService{
			Timeout: 5 * time.Second,
		},
		Listen: "127.0.0.1:7450",
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	switch c.Notary.Driver {
	case "memory":
	case "sqlite":
		if c.Notary.DSN == "" {
			return fmt.Errorf("notary.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("notary.driver must be memory or sqlite, got %q", c.Notary.Driver)
	}
	if c.Notary.Timeout < 0 || c.KeyService.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	switch c.Archive.WritePolicy {
	case "", "first", "all":
	default:
		return fmt.Errorf("archive.write_policy must be first or all, got %q", c.Archive.WritePolicy)
	}
	if c.Archive.Copies < 0 {
		return fmt.Errorf("archive.copies must not be negative")
	}
	if c.Notary.TTL < 0 {
		return fmt.Errorf("notary.ttl must not be negative")
	}
	return nil
}

// Validate checks the engine section.
func (e Engine) Validate() error {
	if _, ok := codec.Lookup(e.Format); !ok {
		return fmt.Errorf("engine.format: unknown format %q", e.Format)
	}
	if _, err := lists.ParseEncoding(e.ListEncoding); err != nil {
		return fmt.Errorf("engine.list_encoding: %w", err)
	}
	if _, err := cidutil.ParseAlgorithm(e.HashAlgorithm); err != nil {
		return fmt.Errorf("engine.hash_algorithm: %w", err)
	}
	if _, err := compliance.Parse(e.Compliance); err != nil {
		return fmt.Errorf("engine.compliance: %w", err)
	}
	return nil
}

// Load loads configuration from a YAML file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// Save saves configuration to a YAML file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Engine
	if other.Engine.Format != "" {
		c.Engine.Format = other.Engine.Format
	}
	if other.Engine.ListEncoding != "" {
		c.Engine.ListEncoding = other.Engine.ListEncoding
	}
	if other.Engine.PreserveListEncoding {
		c.Engine.PreserveListEncoding = true
	}
	if other.Engine.HashAlgorithm != "" {
		c.Engine.HashAlgorithm = other.Engine.HashAlgorithm
	}
	if other.Engine.ReferencePrefix != "" {
		c.Engine.ReferencePrefix = other.Engine.ReferencePrefix
	}
	if other.Engine.Compliance != "" {
		c.Engine.Compliance = other.Engine.Compliance
	}

	// Notary
	if other.Notary.Address != "" {
		c.Notary.Address = other.Notary.Address
	}
	if other.Notary.Timeout != 0 {
		c.Notary.Timeout = other.Notary.Timeout
	}
	if other.Notary.TTL != 0 {
		c.Notary.TTL = other.Notary.TTL
	}
	if other.Notary.Driver != "" {
		c.Notary.Driver = other.Notary.Driver
	}
	if other.Notary.DSN != "" {
		c.Notary.DSN = other.Notary.DSN
	}

	// Key service
	if other.KeyService.Address != "" {
		c.KeyService.Address = other.KeyService.Address
	}
	if other.KeyService.Timeout != 0 {
		c.KeyService.Timeout = other.KeyService.Timeout
	}
	if len(other.KeyService.Users) > 0 {
		c.KeyService.Users = other.KeyService.Users
	}

	// Archive
	if other.Archive.Dir != "" {
		c.Archive.Dir = other.Archive.Dir
	}
	if other.Archive.Remote != "" {
		c.Archive.Remote = other.Archive.Remote
	}
	if other.Archive.WritePolicy != "" {
		c.Archive.WritePolicy = other.Archive.WritePolicy
	}
	if other.Archive.Copies != 0 {
		c.Archive.Copies = other.Archive.Copies
	}

	if other.Listen != "" {
		c.Listen = other.Listen
	}
	if other.MetricsListen != "" {
		c.MetricsListen = other.MetricsListen
	}
}
