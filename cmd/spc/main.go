// Package main is the spc command itself.
package main

import (
	"log"
	"os"

	spccli "go.viam.com/spc/cli"
)

func main() {
	app := spccli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
