// Package config handles global configuration and path resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/strata/config.yml.
// Zero values fall back to defaults at load time.
type Config struct {
	ZoteroDB      string   `yaml:"zotero_db,omitempty"`
	ZoteroStorage string   `yaml:"zotero_storage,omitempty"`
	DataDir       string   `yaml:"data_dir,omitempty"`
	PDFReader     string   `yaml:"pdf_reader,omitempty"`
	StopWords     []string `yaml:"stop_words,omitempty"`
	DebounceMS    int      `yaml:"debounce_ms,omitempty"`
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "strata"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DBFile is the paper database file name under the data dir.
	DBFile = "papers.db"
	// FilesDir is the PDF file store directory name under the data dir.
	FilesDir = "files"
)

// defaultStopWords are excluded from citation key title words.
var defaultStopWords = []string{
	"a", "an", "the", "on", "of", "for", "and", "or", "in", "to",
	"with", "at", "by", "from", "is", "are", "as", "its", "via",
	"towards", "toward",
}

// ValidReaders lists the supported PDF reader values.
var ValidReaders = []string{"system", "skim", "preview", "zathura", "evince", "okular"}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/strata/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load reads the config file, applies .env and environment overrides,
// and fills in defaults. A missing config file is not an error.
func Load() (*Config, error) {
	// .env never overrides real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}
	path := Path()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes the config file, creating its directory as needed.
func (c *Config) Save() error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot resolve config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRATA_ZOTERO_DB"); v != "" {
		cfg.ZoteroDB = v
	}
	if v := os.Getenv("STRATA_ZOTERO_STORAGE"); v != "" {
		cfg.ZoteroStorage = v
	}
	if v := os.Getenv("STRATA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("STRATA_PDF_READER"); v != "" {
		cfg.PDFReader = v
	}
}

func applyDefaults(cfg *Config) {
	home, _ := os.UserHomeDir()
	if cfg.ZoteroDB == "" && home != "" {
		cfg.ZoteroDB = filepath.Join(home, "Zotero", "zotero.sqlite")
	}
	if cfg.ZoteroStorage == "" && cfg.ZoteroDB != "" {
		cfg.ZoteroStorage = filepath.Join(filepath.Dir(ExpandPath(cfg.ZoteroDB)), "storage")
	}
	if cfg.DataDir == "" {
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" && home != "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		if dataHome != "" {
			cfg.DataDir = filepath.Join(dataHome, ConfigDir)
		}
	}
	if cfg.PDFReader == "" {
		cfg.PDFReader = "system"
	}
	if len(cfg.StopWords) == 0 {
		cfg.StopWords = append([]string(nil), defaultStopWords...)
	}
	if cfg.DebounceMS <= 0 {
		cfg.DebounceMS = 2000
	}
}

// DBPath returns the absolute path of the paper database.
func (c *Config) DBPath() string {
	return filepath.Join(ExpandPath(c.DataDir), DBFile)
}

// FilesPath returns the absolute path of the PDF file store root.
func (c *Config) FilesPath() string {
	return filepath.Join(ExpandPath(c.DataDir), FilesDir)
}

// ZoteroDBPath returns the expanded Zotero database path.
func (c *Config) ZoteroDBPath() string {
	return ExpandPath(c.ZoteroDB)
}

// ZoteroStoragePath returns the expanded Zotero storage path.
func (c *Config) ZoteroStoragePath() string {
	return ExpandPath(c.ZoteroStorage)
}

// Debounce returns the watcher debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// StopWordSet returns the stop words as a lookup set.
func (c *Config) StopWordSet() map[string]bool {
	set := make(map[string]bool, len(c.StopWords))
	for _, w := range c.StopWords {
		set[w] = true
	}
	return set
}

// ValidatePDFReader checks that the reader value is valid.
func ValidatePDFReader(reader string) error {
	if reader == "" {
		return nil // Empty defaults to "system"
	}

	for _, valid := range ValidReaders {
		if reader == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid pdf_reader: %s (valid: %v)", reader, ValidReaders)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
