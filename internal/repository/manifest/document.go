package manifest

import (
	"maps"
	"slices"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

// document is the on-disk shape of a formula, shared by YAML and TOML.
type document struct {
	Name      string                     `yaml:"name" toml:"name"`
	Desc      string                     `yaml:"desc,omitempty" toml:"desc,omitempty"`
	Homepage  string                     `yaml:"homepage,omitempty" toml:"homepage,omitempty"`
	Version   string                     `yaml:"version" toml:"version"`
	DependsOn *dependsOnDocument         `yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
	Variants  map[string]variantDocument `yaml:"variants" toml:"variants"`
	Install   installDocument            `yaml:"install_action" toml:"install_action"`
	Caveats   string                     `yaml:"caveats,omitempty" toml:"caveats,omitempty"`
}

type dependsOnDocument struct {
	OS []string `yaml:"os,omitempty" toml:"os,omitempty"`
}

type variantDocument struct {
	URL    string `yaml:"url" toml:"url"`
	SHA256 string `yaml:"sha256" toml:"sha256"`
}

type installDocument struct {
	Type   string `yaml:"type,omitempty" toml:"type,omitempty"`
	Source string `yaml:"source,omitempty" toml:"source,omitempty"`
	Target string `yaml:"target" toml:"target"`
}

// fromManifest converts a validated manifest back to its document form.
func fromManifest(m *formula.Manifest) *document {
	doc := &document{
		Name:     m.Name,
		Desc:     m.Desc,
		Homepage: m.Homepage,
		Version:  m.Version,
		Variants: make(map[string]variantDocument, len(m.Variants)),
		Install: installDocument{
			Type:   string(m.Install.Type),
			Source: m.Install.Source,
			Target: m.Install.Target,
		},
		Caveats: m.Caveats,
	}

	if len(m.DependsOn.OS) > 0 {
		doc.DependsOn = &dependsOnDocument{OS: slices.Clone(m.DependsOn.OS)}
	}

	for _, arch := range slices.Sorted(maps.Keys(m.Variants)) {
		v := m.Variants[arch]
		doc.Variants[string(arch)] = variantDocument{URL: v.URL, SHA256: v.SHA256}
	}

	return doc
}
