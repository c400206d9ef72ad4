package main

import (
	"os"

	"github.com/arnavsurve/pagerun/cmd/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:], os.Stdout, os.Stderr))
}
