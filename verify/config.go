package verify

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/mmverify/internal/mm"
	tt "github.com/gnoswap-labs/mmverify/internal/types"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = ".mmverify.yaml"

// ReadErrorRule tags databases that could not be read.
const ReadErrorRule = "read-error"

// Config represents the overall configuration with a name and a set of rules.
type Config struct {
	Name       string                   `yaml:"name"`
	Rules      map[string]tt.ConfigRule `yaml:"rules"`
	Extensions []string                 `yaml:"extensions"`
}

func DefaultConfig() Config {
	return Config{
		Name: "mmverify",
		Rules: map[string]tt.ConfigRule{
			mm.KindIncompleteProof.String(): {Severity: tt.SeverityWarning},
		},
		Extensions: []string{".mm"},
	}
}

// LoadConfig reads the configuration at path. A missing or empty file
// yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, err
	}
	defer f.Close()

	var loaded Config
	err = yaml.NewDecoder(f).Decode(&loaded)
	if errors.Is(err, io.EOF) {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("error parsing %s: %w", path, err)
	}

	if loaded.Name != "" {
		config.Name = loaded.Name
	}
	for rule, cfg := range loaded.Rules {
		config.Rules[rule] = cfg
	}
	if len(loaded.Extensions) > 0 {
		config.Extensions = loaded.Extensions
	}
	return config, nil
}

// Save writes the configuration to path.
func (c Config) Save(path string) error {
	d, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}
