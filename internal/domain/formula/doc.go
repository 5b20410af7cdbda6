// Package formula defines the domain model of a package formula: the
// manifest, its per-architecture variants, the install action, the error
// kinds an install run can end with and the stages it moves through.
package formula
