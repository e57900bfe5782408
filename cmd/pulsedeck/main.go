package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tkarvo/pulsedeck/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands render their own failures through the formatter;
		// anything else (usage errors, bad flags) still needs printing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
