package complete

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .scafc.yaml configuration file.
type Config struct {
	// CaseSensitive switches prefix matching from case-folded to exact.
	CaseSensitive bool `yaml:"caseSensitive"`

	// Debug logs resolution decisions (policy, prefix, reference count).
	Debug bool `yaml:"debug"`

	// Disabled lists policy names that never resolve.
	Disabled []string `yaml:"disabled,omitempty"`

	// Keywords adds keywords to named keyword slots.
	// e.g., "test-body": ["skip"]
	Keywords map[string][]string `yaml:"keywords,omitempty"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".scafc.yaml", ".scafc.yml", "scafc.yaml", "scafc.yml"}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig finds and loads the nearest config file walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// KeywordsFor returns the extra keywords configured for a slot.
func (c *Config) KeywordsFor(slot string) []string {
	if c == nil {
		return nil
	}

	return c.Keywords[slot]
}
