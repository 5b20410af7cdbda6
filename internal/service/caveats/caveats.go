// Package caveats prints a formula's post-install message.
package caveats

import (
	"fmt"
	"io"
	"strings"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

// Header precedes the caveat text.
const Header = "==> Caveats"

// Report writes the caveats of m to w exactly as declared. Formulas without
// caveats produce no output. Callers invoke it only after a successful install.
func Report(w io.Writer, m *formula.Manifest) error {
	if !m.HasCaveats() {
		return nil
	}

	text := m.Caveats
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	if _, err := fmt.Fprintf(w, "%s\n%s", Header, text); err != nil {
		return fmt.Errorf("write caveats: %w", err)
	}

	return nil
}
