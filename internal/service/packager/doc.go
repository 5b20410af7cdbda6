// Package packager refreshes the checksums of a formula.
//
// It downloads every variant the formula declares, reports the computed
// SHA-256 digests next to the declared ones and, on request, rewrites the
// formula with the new values. Maintainers run it after bumping a version.
package packager
