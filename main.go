package main

import (
	"os"

	"github.com/conneroisu/ocpack/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cmd.PrintError(err)
		os.Exit(cmd.ExitCode(err))
	}
}
