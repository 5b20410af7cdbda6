// Command brewlite installs pre-built binaries described by package formulas.
package main

import "github.com/oshokin/brewlite/cmd/brewlite/cmd"

func main() {
	cmd.Execute()
}
