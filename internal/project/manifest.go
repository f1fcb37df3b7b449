package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"rcsbsync/internal/query"
	"rcsbsync/internal/services"
)

// Manifest declares what a project tracks. Queries are generated from it;
// hand-written query documents work without one.
type Manifest struct {
	Name string   `toml:"name"`
	Taxa []string `toml:"taxa"`
	CSM  bool     `toml:"csm"`
}

// LoadManifest reads and validates the project manifest at path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, services.Wrap(services.ErrConfiguration, "project", "manifest",
				fmt.Sprintf("no manifest at %s", path), nil)
		}
		return Manifest{}, services.Wrap(services.ErrConfiguration, "project", "manifest", path, err)
	}
	var manifest Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, services.Wrap(services.ErrConfiguration, "project", "manifest", path, err)
	}
	if err := manifest.Validate(); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

// SaveManifest writes the manifest to path.
func SaveManifest(path string, manifest Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(manifest)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "project", "manifest", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "project", "manifest", path, err)
	}
	return nil
}

// Validate checks the manifest is usable for query generation.
func (m Manifest) Validate() error {
	if len(m.Taxa) == 0 {
		return services.Wrap(services.ErrConfiguration, "project", "manifest", "at least one taxon required", nil)
	}
	for _, taxon := range m.Taxa {
		if strings.TrimSpace(taxon) == "" {
			return services.Wrap(services.ErrConfiguration, "project", "manifest", "empty taxon entry", nil)
		}
	}
	return nil
}

// Specs expands the manifest into generated-query specs.
func (m Manifest) Specs() []query.Spec {
	return query.SpecsFor(m.Taxa, m.CSM)
}
