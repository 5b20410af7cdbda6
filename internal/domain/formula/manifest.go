package formula

import (
	"fmt"
	"slices"
	"strings"
)

// ActionType names an install action.
type ActionType string

// ActionCopyRename copies one file (or archive member) into the bin
// directory under a new name.
const ActionCopyRename ActionType = "copy_rename"

// Variant is the artifact published for one architecture.
type Variant struct {
	// URL is the absolute http(s) location of the artifact.
	URL string
	// SHA256 is the lowercase hex digest of the artifact.
	SHA256 string
}

// InstallAction describes the file placement performed after verification.
type InstallAction struct {
	// Type is the action kind; only ActionCopyRename exists.
	Type ActionType
	// Source is the archive member (matched by base name) or, for a raw
	// artifact, ignored.
	Source string
	// Target is the file name created in the bin directory.
	Target string
}

// Requirements restricts where a formula may be installed.
type Requirements struct {
	// OS lists allowed GOOS values; empty means any.
	OS []string
}

// Manifest is a validated, read-only package formula.
type Manifest struct {
	Name      string
	Desc      string
	Homepage  string
	Version   string
	Variants  map[Architecture]Variant
	Install   InstallAction
	DependsOn Requirements
	Caveats   string
}

// VariantFor returns the variant matching arch exactly. There is no
// fallback to another architecture.
func (m *Manifest) VariantFor(arch Architecture) (Variant, error) {
	variant, ok := m.Variants[arch]
	if !ok {
		return Variant{}, fmt.Errorf("%w: detected %s, formula %s supports %s",
			ErrUnsupportedArchitecture, arch, m.Name, m.supportedList())
	}

	return variant, nil
}

// SupportedArchitectures lists the architectures with a variant, in the
// order of KnownArchitectures.
func (m *Manifest) SupportedArchitectures() []Architecture {
	result := make([]Architecture, 0, len(m.Variants))

	for _, arch := range KnownArchitectures() {
		if _, ok := m.Variants[arch]; ok {
			result = append(result, arch)
		}
	}

	return result
}

// SupportsOS reports whether goos satisfies the formula requirements.
func (m *Manifest) SupportsOS(goos string) bool {
	if len(m.DependsOn.OS) == 0 {
		return true
	}

	return slices.Contains(m.DependsOn.OS, goos)
}

// HasCaveats reports whether the formula carries a post-install message.
func (m *Manifest) HasCaveats() bool {
	return strings.TrimSpace(m.Caveats) != ""
}

func (m *Manifest) supportedList() string {
	archs := m.SupportedArchitectures()
	names := make([]string, 0, len(archs))

	for _, arch := range archs {
		names = append(names, arch.String())
	}

	return strings.Join(names, ", ")
}
