package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for dirsnap. Every field can be
// overridden on the command line; the file supplies host-wide defaults.
type Config struct {
	TargetDir     string           `toml:"target_dir"`
	Output        string           `toml:"output"`
	SnapshotName  string           `toml:"snapshot_name"`
	Exclude       []string         `toml:"exclude"`
	Quiet         bool             `toml:"quiet"`
	LogDir        string           `toml:"log_dir"`
	SignatureFile bool             `toml:"signature_file"`
	ChecksumFile  bool             `toml:"checksum_file"`
	Encryption    EncryptionConfig `toml:"encryption"`
	Archive       ArchiveConfig    `toml:"archive"`
}

// EncryptionConfig holds the age key paths used to protect archived
// snapshots.
type EncryptionConfig struct {
	Enabled       bool   `toml:"enabled"`
	RecipientPath string `toml:"recipient_path"`
	IdentityPath  string `toml:"identity_path"`
}

// ArchiveConfig configures off-host custody storage for completed
// snapshots. This uses a tagged union pattern: the Type field determines
// which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "", "memory", "filesystem" or "s3"

	// Filesystem-specific (Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific (Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// NewConfig creates a Config with defaults rooted in baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		Output: filepath.Join(baseDir, "snapshot.db"),
		LogDir: filepath.Join(baseDir, "log"),
		Encryption: EncryptionConfig{
			RecipientPath: filepath.Join(baseDir, "keys", "dirsnap.pub"),
			IdentityPath:  filepath.Join(baseDir, "keys", "dirsnap.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
