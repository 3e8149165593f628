// pkg/core/load.go
package core

import (
	"bytes"
	"fmt"
	"os"

	manifest "github.com/joeydtaylor/steeze-multipass/pkg/manifest"
	toml "github.com/pelletier/go-toml/v2"
)

// LoadConfig reads a manifest, applies environment overrides and validates
// the result. Unknown keys are rejected.
func LoadConfig(path string) (manifest.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return manifest.Config{}, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (manifest.Config, error) {
	var cfg manifest.Config
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return manifest.Config{}, fmt.Errorf("manifest decode: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return manifest.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return manifest.Config{}, err
	}
	return cfg, nil
}
