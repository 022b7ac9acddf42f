package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gitlab.com/plantguard-2025.net/internal/domain"
)

// Descriptor is a run described in a YAML file. Table is a path to a table
// file, relative to the descriptor.
type Descriptor struct {
	domain.InvocationDescriptor `yaml:",inline"`
	Table                       string `yaml:"table"`
}

// LoadDescriptor reads a YAML run descriptor
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	if d.Table != "" && !filepath.IsAbs(d.Table) {
		d.Table = filepath.Join(filepath.Dir(path), d.Table)
	}
	return &d, nil
}
