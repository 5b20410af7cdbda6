package formula

import "errors"

// Error kinds an install run can end with. Every one is terminal for the
// run; callers match them with errors.Is and the wrapping error carries the
// details (architecture, URL, digests, paths).
var (
	// ErrMalformedManifest means a required field is missing or invalid.
	ErrMalformedManifest = errors.New("malformed manifest")
	// ErrUnsupportedArchitecture means the manifest has no variant for the host.
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
	// ErrUnsupportedPlatform means the manifest excludes the host operating system.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrFetch means the artifact could not be downloaded.
	ErrFetch = errors.New("fetch failed")
	// ErrChecksumMismatch means the artifact digest differs from the manifest.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrInstall means the binary could not be placed into the bin directory.
	ErrInstall = errors.New("install failed")
)
