package formula

import (
	"slices"
	"strings"
)

// Architecture identifies a host CPU architecture using Go's GOARCH naming.
type Architecture string

const (
	// ArchUnknown is reported for machines outside the known set.
	ArchUnknown Architecture = ""
	// ArchAMD64 is 64-bit x86.
	ArchAMD64 Architecture = "amd64"
	// ArchARM64 is 64-bit ARM (Apple Silicon, aarch64).
	ArchARM64 Architecture = "arm64"
	// Arch386 is 32-bit x86.
	Arch386 Architecture = "386"
	// ArchARM is 32-bit ARM.
	ArchARM Architecture = "arm"
)

// architectureAliases maps every accepted spelling to its tag. Adding an
// architecture or alias is a change to this table only.
//
//nolint:gochecknoglobals // Read-only lookup table.
var architectureAliases = map[string]Architecture{
	"amd64":   ArchAMD64,
	"x86_64":  ArchAMD64,
	"x64":     ArchAMD64,
	"intel":   ArchAMD64,
	"arm64":   ArchARM64,
	"aarch64": ArchARM64,
	"386":     Arch386,
	"i386":    Arch386,
	"i686":    Arch386,
	"x86":     Arch386,
	"arm":     ArchARM,
	"armv6l":  ArchARM,
	"armv7l":  ArchARM,
	"armv7":   ArchARM,
}

// ParseArchitecture resolves a tag or alias (case-insensitive).
func ParseArchitecture(s string) (Architecture, bool) {
	arch, ok := architectureAliases[strings.ToLower(strings.TrimSpace(s))]

	return arch, ok
}

// KnownArchitectures returns every tag in a stable order.
func KnownArchitectures() []Architecture {
	return []Architecture{ArchAMD64, ArchARM64, Arch386, ArchARM}
}

// IsKnown reports whether a is one of the known tags.
func (a Architecture) IsKnown() bool {
	return slices.Contains(KnownArchitectures(), a)
}

// String returns the tag, or "unknown" for ArchUnknown.
func (a Architecture) String() string {
	if a == ArchUnknown {
		return "unknown"
	}

	return string(a)
}
