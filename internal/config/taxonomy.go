package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Taxonomy is the set of class labels offered to the model. Loaded from
// a YAML file so deployments can classify into their own categories.
type Taxonomy struct {
	Labels            []string `yaml:"labels"`
	AllowUnrecognized bool     `yaml:"allow_unrecognized"`
}

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Labels:            []string{"Resume", "Contract", "Newspaper", "Letter", "Email", "Form"},
		AllowUnrecognized: true,
	}
}

// LoadTaxonomy reads the taxonomy file, falling back to the default set
// when no path is configured.
func LoadTaxonomy(path string) (Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("read taxonomy file: %w", err)
	}

	var taxonomy Taxonomy
	if err := yaml.Unmarshal(raw, &taxonomy); err != nil {
		return Taxonomy{}, fmt.Errorf("parse taxonomy file: %w", err)
	}
	if len(taxonomy.Labels) == 0 {
		return Taxonomy{}, fmt.Errorf("taxonomy file %s defines no labels", path)
	}
	return taxonomy, nil
}
