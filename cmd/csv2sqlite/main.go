// Command csv2sqlite converts a literary clock quote collection into the
// SQLite quote store shipped with the clock widget.
package main

import (
	"os"

	"github.com/roach88/quoteclock/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewImportCommand()))
}
