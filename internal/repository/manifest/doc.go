// Package manifest loads package formulae from YAML or TOML files.
//
// Parsing is pure: a formula is checked against an embedded JSON Schema,
// decoded into a document, and then validated field by field into a
// read-only formula.Manifest. Any problem is reported as
// formula.ErrMalformedManifest. The package can also render a manifest back
// to its file format, which the checksum tool uses to refresh digests.
package manifest
