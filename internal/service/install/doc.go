// Package install drives one formula install through its stages:
// loading, fetching, verifying, installing and reporting.
//
// Run is the entry point for the CLI. It serializes installs of the same
// package through a lock file, always removes the downloaded artifact and
// releases the lock, and prints caveats only after the binary is in place.
// A failure in any stage ends the run; the returned error names the stage
// and wraps one of the formula error kinds.
package install
