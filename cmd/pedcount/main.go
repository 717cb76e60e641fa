// Command pedcount lists the pedestrian sensor sites with the highest
// counts for a day or month.
package main

import (
	"fmt"
	"os"

	"github.com/swail/pedcount/internal/cli"
)

func main() {
	err := cli.Run(os.Args[1:])
	code := cli.ExitCode(err)
	if err != nil && code != cli.ExitOK {
		fmt.Fprintln(os.Stderr, cli.Message(err))
	}
	os.Exit(code)
}
