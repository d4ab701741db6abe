// Command napkin-history records and browses the snapshot history of napkin
// whiteboard sessions.
package main

import (
	"os"

	"github.com/ipcrm/napkin/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
