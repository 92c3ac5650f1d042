package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CatalogVoter is one registry entry inside a catalog election.
type CatalogVoter struct {
	Mobile      string                 `yaml:"mobile" json:"mobile"`
	DisplayName string                 `yaml:"display_name" json:"display_name"`
	Eligible    bool                   `yaml:"eligible" json:"eligible"`
	Metadata    map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

type CatalogElection struct {
	ID       string                 `yaml:"id" json:"id"`
	Name     string                 `yaml:"name" json:"name"`
	Status   string                 `yaml:"status" json:"status"`
	StartsAt time.Time              `yaml:"starts_at" json:"starts_at"`
	EndsAt   time.Time              `yaml:"ends_at" json:"ends_at"`
	Metadata map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Voters   []CatalogVoter         `yaml:"voters" json:"voters"`
}

// Catalog is the registry snapshot published by campus administration. The
// voting core only ever reads it; election CRUD lives elsewhere.
type Catalog struct {
	Elections []CatalogElection `yaml:"elections" json:"elections"`
}

func LoadCatalog(path string) (Catalog, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Catalog{}, err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Elections) == 0 {
		return Catalog{}, fmt.Errorf("registry catalog empty")
	}
	for _, election := range cat.Elections {
		if election.ID == "" {
			return Catalog{}, fmt.Errorf("registry catalog election missing id")
		}
		if !election.EndsAt.After(election.StartsAt) {
			return Catalog{}, fmt.Errorf("election %s has an empty voting window", election.ID)
		}
	}
	return cat, nil
}
