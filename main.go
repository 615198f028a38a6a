package main

import (
	"os"

	"github.com/AnEntrypoint/sandboxbox-sub004/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
