package main

import (
	"os"

	"github.com/atinyakov/ReinsDesk/internal/cli"
)

var (
	version   string
	buildDate string
)

func main() {
	os.Exit(cli.Execute(version, buildDate))
}
