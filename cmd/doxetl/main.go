package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/doxetl/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "doxetl:", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
