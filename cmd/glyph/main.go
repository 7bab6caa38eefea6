// Command glyph tracks work cards, their dependencies, and reviewer
// acceptance.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/glyph/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		// Flag and argument errors are not printed by the commands.
		fmt.Fprintln(os.Stderr, "glyph:", err)
		os.Exit(cli.ExitCommandError)
	}
}
