// Package config defines the brewlite settings file and provides helpers to
// load, validate and save it in YAML format.
//
// Unset values fall back to XDG locations: binaries go to the XDG bin home,
// downloads to the cache home and install locks to the state home.
package config
