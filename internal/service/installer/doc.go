// Package installer verifies downloaded artifacts and places the formula's
// binary into the bin directory.
//
// Verify is the only way to obtain a Verified value and Install accepts
// nothing else, so an unverified artifact can never reach the bin
// directory. Installs are atomic: a fresh binary is written to a hidden
// temporary file next to the destination and renamed, an existing one is
// swapped with go-update which rolls back on failure.
package installer
