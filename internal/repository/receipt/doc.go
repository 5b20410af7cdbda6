// Package receipt persists install receipts.
//
// The FileRepository keeps one JSON document per formula in a directory and
// exposes a Repository interface that the install runner and the info
// command depend on.
package receipt
