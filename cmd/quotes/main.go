// Command quotes inspects quote stores built by csv2sqlite.
package main

import (
	"os"

	"github.com/roach88/quoteclock/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand()))
}
