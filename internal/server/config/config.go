// Package config handles configuration for the registry server: defaults,
// TOML overlay, and construction of the index and storage backends selected
// by their config tags.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/crateport/crateport/internal/server/index"
	"github.com/crateport/crateport/internal/server/storage"
)

// Config holds runtime settings for the registry server.
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Database DatabaseConfig `toml:"database"`
	Index    IndexConfig    `toml:"index"`
	Storage  StorageConfig  `toml:"storage"`
	Syntect  SyntectConfig  `toml:"syntect"`
	Frontend FrontendConfig `toml:"frontend"`
}

type GeneralConfig struct {
	// Addr is the bind address of the HTTP endpoint.
	Addr string `toml:"addr"`

	// SearchIndex is the path of the full-text index; ":memory:" keeps it
	// ephemeral.
	SearchIndex string `toml:"search_index"`

	// MaxMetadataSize / MaxCrateSize bound the two length-prefixed sections
	// of a publish frame, in bytes.
	MaxMetadataSize uint32 `toml:"max_metadata_size"`
	MaxCrateSize    uint32 `toml:"max_crate_size"`

	// MaxConcurrentPublishes bounds in-flight uploads; requests over the
	// limit are rejected with server-busy.
	MaxConcurrentPublishes int64 `toml:"max_concurrent_publishes"`
}

type DatabaseConfig struct {
	// URL is a postgres:// DSN, a SQLite file path, or ":memory:" for an
	// ephemeral database.
	URL string `toml:"url"`
}

type IndexConfig struct {
	Type string `toml:"type"`
	Path string `toml:"path"`
}

type StorageConfig struct {
	Type string `toml:"type"`

	// disk
	Path string `toml:"path"`

	// s3
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	KeyPrefix string `toml:"key_prefix"`
	Endpoint  string `toml:"endpoint"`
}

type SyntectConfig struct {
	// Style is the chroma style used when highlighting README code blocks.
	Style string `toml:"style"`
}

type FrontendConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.General.Addr = "127.0.0.1:3000"
	c.General.SearchIndex = ":memory:"
	c.General.MaxMetadataSize = 10 << 20
	c.General.MaxCrateSize = 512 << 20
	c.General.MaxConcurrentPublishes = 4
	c.Database.URL = ":memory:"
	c.Index.Type = "command-line"
	c.Index.Path = "crate-index"
	c.Storage.Type = "disk"
	c.Storage.Path = "crate-storage"
	c.Syntect.Style = "github"
}

// Load builds a Config from defaults overlaid with the TOML document at path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown index and storage tags with a precise message.
func (c *Config) Validate() error {
	switch c.Index.Type {
	case "command-line", "cli", "git2":
	default:
		return fmt.Errorf("unknown index type %q (expected \"command-line\", \"cli\" or \"git2\")", c.Index.Type)
	}

	switch c.Storage.Type {
	case "disk", "s3":
	default:
		return fmt.Errorf("unknown storage type %q (expected \"disk\" or \"s3\")", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage type \"s3\" requires a bucket")
	}
	return nil
}

// BuildIndex constructs the index manager selected by the index tag.
func (c *IndexConfig) BuildIndex() (index.Indexer, error) {
	switch c.Type {
	case "command-line", "cli":
		return index.NewCommandLineIndex(c.Path), nil
	case "git2":
		return index.NewGitIndex(c.Path)
	default:
		return nil, fmt.Errorf("unknown index type %q (expected \"command-line\", \"cli\" or \"git2\")", c.Type)
	}
}

// BuildStorage constructs the storage manager selected by the storage tag.
// Object-store credentials honor the AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY environment overrides; otherwise the default chain
// applies (environment, profile config file, instance identity).
func (c *StorageConfig) BuildStorage(ctx context.Context) (storage.Store, error) {
	switch c.Type {
	case "disk":
		return storage.NewDiskStorage(c.Path)
	case "s3":
		keyPrefix := c.KeyPrefix
		if keyPrefix == "" {
			keyPrefix = "crates"
		}
		return storage.NewS3Storage(ctx, storage.S3Options{
			Region:          c.Region,
			Bucket:          c.Bucket,
			KeyPrefix:       keyPrefix,
			Endpoint:        c.Endpoint,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q (expected \"disk\" or \"s3\")", c.Type)
	}
}
