package installer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/oshokin/brewlite/internal/domain/formula"
	"github.com/oshokin/brewlite/internal/service/fetcher"
)

// Verified is an artifact whose digest matched the formula.
type Verified struct {
	artifact *fetcher.Artifact
	digest   string
}

// Artifact returns the underlying download.
func (v *Verified) Artifact() *fetcher.Artifact {
	return v.artifact
}

// Digest returns the lowercase hex SHA-256 of the artifact.
func (v *Verified) Digest() string {
	return v.digest
}

// Verify hashes the whole artifact file and compares it with expected,
// ignoring hex case. The digest is public, so a plain comparison is enough.
// A file that cannot be read is formula.ErrInstall, not a mismatch.
func Verify(artifact *fetcher.Artifact, expected string) (*Verified, error) {
	actual, err := FileSHA256(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: hash %s: %w", formula.ErrInstall, artifact.Path, err)
	}

	expected = strings.TrimSpace(expected)
	if !strings.EqualFold(actual, expected) {
		return nil, fmt.Errorf("%w: %s: expected %s, got %s",
			formula.ErrChecksumMismatch, artifact.URL, strings.ToLower(expected), actual)
	}

	return &Verified{artifact: artifact, digest: actual}, nil
}

// FileSHA256 returns the lowercase hex SHA-256 of the file at path.
func FileSHA256(path string) (string, error) {
	file, err := openClean(path)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
