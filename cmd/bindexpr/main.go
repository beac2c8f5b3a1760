package main

import (
	"log"
	"os"

	"github.com/funvibe/bindexpr/pkg/cli"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("bindexpr: ")
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
