// Package lock serializes installs of the same package across processes
// with an exclusive lock file per package name.
package lock
