package formula

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestManifest() *Manifest {
	return &Manifest{
		Name:    "dts-legacy",
		Version: "0.18.0",
		Variants: map[Architecture]Variant{
			ArchAMD64: {URL: "https://example.com/U1", SHA256: "c1"},
			ArchARM64: {URL: "https://example.com/U2", SHA256: "c2"},
		},
	}
}

// TestVariantFor_ExactMatch checks that each architecture gets its own variant.
func TestVariantFor_ExactMatch(t *testing.T) {
	t.Parallel()

	m := newTestManifest()

	v, err := m.VariantFor(ArchARM64)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/U2", v.URL)
	require.Equal(t, "c2", v.SHA256)

	v, err = m.VariantFor(ArchAMD64)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/U1", v.URL)
}

// TestVariantFor_Unsupported verifies the error names the detected and supported architectures.
func TestVariantFor_Unsupported(t *testing.T) {
	t.Parallel()

	m := newTestManifest()

	for _, arch := range []Architecture{Arch386, ArchARM, ArchUnknown} {
		_, err := m.VariantFor(arch)
		require.ErrorIs(t, err, ErrUnsupportedArchitecture)
		require.Contains(t, err.Error(), "detected "+arch.String())
		require.Contains(t, err.Error(), "amd64, arm64")
	}
}

// TestSupportsOS covers empty and restricted requirement lists.
func TestSupportsOS(t *testing.T) {
	t.Parallel()

	m := newTestManifest()
	require.True(t, m.SupportsOS("linux"))

	m.DependsOn.OS = []string{"darwin"}
	require.True(t, m.SupportsOS("darwin"))
	require.False(t, m.SupportsOS("linux"))
}

// TestHasCaveats ignores whitespace-only text.
func TestHasCaveats(t *testing.T) {
	t.Parallel()

	m := newTestManifest()
	require.False(t, m.HasCaveats())

	m.Caveats = " \n"
	require.False(t, m.HasCaveats())

	m.Caveats = "hello\n"
	require.True(t, m.HasCaveats())
}
