package manifest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

// Format is a formula file encoding.
type Format int

const (
	// FormatYAML is the default encoding.
	FormatYAML Format = iota
	// FormatTOML is selected by the .toml extension.
	FormatTOML
)

// sha256HexLength is the length of a hex-encoded SHA-256 digest.
const sha256HexLength = 64

// DefaultFilePermissions is used when writing formula files.
const DefaultFilePermissions = 0o644

var errEmptyPath = errors.New("manifest path is empty")

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(p string) Format {
	if strings.EqualFold(filepath.Ext(p), ".toml") {
		return FormatTOML
	}

	return FormatYAML
}

// String returns the format name.
func (f Format) String() string {
	if f == FormatTOML {
		return "toml"
	}

	return "yaml"
}

// Load reads and validates the formula at p.
func Load(p string) (*formula.Manifest, error) {
	if p == "" {
		return nil, errEmptyPath
	}

	data, err := os.ReadFile(filepath.Clean(p))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m, err := Parse(data, FormatFromPath(p))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	return m, nil
}

// Parse validates formula bytes. It performs no I/O.
func Parse(data []byte, format Format) (*formula.Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", formula.ErrMalformedManifest)
	}

	if err := validateStructure(data, format); err != nil {
		return nil, fmt.Errorf("%w: %w", formula.ErrMalformedManifest, err)
	}

	doc, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", formula.ErrMalformedManifest, err)
	}

	return doc.toManifest()
}

// Marshal renders m in the given format.
func Marshal(m *formula.Manifest, format Format) ([]byte, error) {
	doc := fromManifest(m)

	if format == FormatTOML {
		return toml.Marshal(doc)
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Save writes m to p in the format implied by its extension.
func Save(p string, m *formula.Manifest) error {
	data, err := Marshal(m, FormatFromPath(p))
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(p), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

func decode(data []byte, format Format) (*document, error) {
	var doc document

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}

	return &doc, nil
}

// toManifest applies the semantic checks the schema cannot express.
func (d *document) toManifest() (*formula.Manifest, error) {
	m := &formula.Manifest{
		Name:     strings.TrimSpace(d.Name),
		Desc:     strings.TrimSpace(d.Desc),
		Homepage: strings.TrimSpace(d.Homepage),
		Version:  strings.TrimSpace(d.Version),
		Variants: make(map[formula.Architecture]formula.Variant, len(d.Variants)),
		Caveats:  d.Caveats,
	}

	if m.Name == "" {
		return nil, malformed("name is required")
	}

	if m.Version == "" {
		return nil, malformed("version is required")
	}

	if len(d.Variants) == 0 {
		return nil, malformed("at least one variant is required")
	}

	for key, v := range d.Variants {
		arch, ok := formula.ParseArchitecture(key)
		if !ok {
			return nil, malformed("variant %q: unknown architecture", key)
		}

		if _, dup := m.Variants[arch]; dup {
			return nil, malformed("variant %q: architecture %s declared twice", key, arch)
		}

		variant, err := parseVariant(key, v)
		if err != nil {
			return nil, err
		}

		m.Variants[arch] = variant
	}

	install, err := d.Install.toAction()
	if err != nil {
		return nil, err
	}

	m.Install = install

	if d.DependsOn != nil {
		for _, goos := range d.DependsOn.OS {
			goos = strings.ToLower(strings.TrimSpace(goos))
			if goos == "" {
				return nil, malformed("depends_on.os: empty entry")
			}

			m.DependsOn.OS = append(m.DependsOn.OS, goos)
		}
	}

	return m, nil
}

func parseVariant(key string, v variantDocument) (formula.Variant, error) {
	rawURL := strings.TrimSpace(v.URL)
	if rawURL == "" {
		return formula.Variant{}, malformed("variant %q: url is required", key)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return formula.Variant{}, malformed("variant %q: invalid url: %v", key, err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return formula.Variant{}, malformed("variant %q: url must be an absolute http(s) url", key)
	}

	sum := strings.ToLower(strings.TrimSpace(v.SHA256))
	if sum == "" {
		return formula.Variant{}, malformed("variant %q: sha256 is required", key)
	}

	if _, err = hex.DecodeString(sum); err != nil || len(sum) != sha256HexLength {
		return formula.Variant{}, malformed("variant %q: sha256 must be %d hex characters", key, sha256HexLength)
	}

	return formula.Variant{URL: rawURL, SHA256: sum}, nil
}

func (i installDocument) toAction() (formula.InstallAction, error) {
	action := formula.InstallAction{
		Type:   formula.ActionType(strings.TrimSpace(i.Type)),
		Source: strings.TrimSpace(i.Source),
		Target: strings.TrimSpace(i.Target),
	}

	if action.Type == "" {
		action.Type = formula.ActionCopyRename
	}

	if action.Type != formula.ActionCopyRename {
		return action, malformed("install_action.type %q is not supported", action.Type)
	}

	if !isPlainFileName(action.Target) {
		return action, malformed("install_action.target %q must be a plain file name", action.Target)
	}

	if action.Source == "" {
		action.Source = action.Target
	}

	clean := path.Clean(action.Source)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return action, malformed("install_action.source %q must be relative to the archive root", action.Source)
	}

	action.Source = clean

	return action, nil
}

func isPlainFileName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", formula.ErrMalformedManifest, fmt.Sprintf(format, args...))
}
