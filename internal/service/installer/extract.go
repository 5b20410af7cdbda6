package installer

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

// ArchiveKind is the container format of an artifact.
type ArchiveKind int

// Supported artifact formats.
const (
	KindRaw ArchiveKind = iota
	KindTarGzip
	KindTarXz
	KindZip
)

// maxMemberSize caps the decompressed size of the extracted binary.
const maxMemberSize int64 = 2 << 30

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}

	errMemberNotFound = errors.New("archive member not found")
	errMemberTooLarge = errors.New("archive member too large")
)

// String returns a short name of the format.
func (k ArchiveKind) String() string {
	switch k {
	case KindTarGzip:
		return "tar.gz"
	case KindTarXz:
		return "tar.xz"
	case KindZip:
		return "zip"
	default:
		return "raw"
	}
}

// DetectKind sniffs the format from the leading bytes.
func DetectKind(header []byte) ArchiveKind {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return KindTarGzip
	case bytes.HasPrefix(header, xzMagic):
		return KindTarXz
	case bytes.HasPrefix(header, zipMagic):
		return KindZip
	default:
		return KindRaw
	}
}

// ExtractMember returns the contents of member from the artifact at
// archivePath, or the whole file when the artifact is not an archive.
// Members match by cleaned path or, failing that, by base name.
func ExtractMember(archivePath, member string) ([]byte, ArchiveKind, error) {
	kind, err := detectFileKind(archivePath)
	if err != nil {
		return nil, KindRaw, err
	}

	var data []byte

	switch kind {
	case KindTarGzip:
		data, err = extractTar(archivePath, member, func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	case KindTarXz:
		data, err = extractTar(archivePath, member, func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		})
	case KindZip:
		data, err = extractZip(archivePath, member)
	default:
		data, err = readRaw(archivePath)
	}

	return data, kind, err
}

func detectFileKind(archivePath string) (ArchiveKind, error) {
	file, err := openClean(archivePath)
	if err != nil {
		return KindRaw, err
	}

	defer func() {
		_ = file.Close()
	}()

	header := make([]byte, len(xzMagic))

	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return KindRaw, fmt.Errorf("read header of %s: %w", archivePath, err)
	}

	return DetectKind(header[:n]), nil
}

func extractTar(archivePath, member string, decompress func(io.Reader) (io.Reader, error)) ([]byte, error) {
	file, err := openClean(archivePath)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	stream, err := decompress(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("open compressed stream: %w", err)
	}

	if closer, ok := stream.(io.Closer); ok {
		defer func() {
			_ = closer.Close()
		}()
	}

	var (
		reader   = tar.NewReader(stream)
		fallback []byte
		found    bool
	)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		exact, base := matchMember(header.Name, member)
		if !exact && (!base || found) {
			continue
		}

		data, err := readLimited(reader)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Name, err)
		}

		if exact {
			return data, nil
		}

		fallback, found = data, true
	}

	if found {
		return fallback, nil
	}

	return nil, fmt.Errorf("%q in %s: %w", member, filepath.Base(archivePath), errMemberNotFound)
}

func extractZip(archivePath, member string) ([]byte, error) {
	archive, err := zip.OpenReader(filepath.Clean(archivePath))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = archive.Close()
	}()

	var fallback *zip.File

	for _, entry := range archive.File {
		if !entry.Mode().IsRegular() {
			continue
		}

		exact, base := matchMember(entry.Name, member)
		if exact {
			return readZipEntry(entry)
		}

		if base && fallback == nil {
			fallback = entry
		}
	}

	if fallback != nil {
		return readZipEntry(fallback)
	}

	return nil, fmt.Errorf("%q in %s: %w", member, filepath.Base(archivePath), errMemberNotFound)
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", entry.Name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	data, err := readLimited(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Name, err)
	}

	return data, nil
}

func readRaw(archivePath string) ([]byte, error) {
	file, err := openClean(archivePath)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	return readLimited(file)
}

// matchMember reports whether an archive entry name equals member after
// cleaning, or shares its base name.
func matchMember(name, member string) (exact, base bool) {
	clean := path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./"))
	want := path.Clean(member)

	if clean == want {
		return true, true
	}

	return false, path.Base(clean) == path.Base(want)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxMemberSize+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > maxMemberSize {
		return nil, errMemberTooLarge
	}

	return data, nil
}

func openClean(p string) (*os.File, error) {
	file, err := os.Open(filepath.Clean(p))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}

	return file, nil
}
