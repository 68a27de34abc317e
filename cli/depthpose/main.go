// Package main is the CLI command itself.
package main

import (
	"os"

	"go.viam.com/depthpose/cli"
	"go.viam.com/depthpose/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.Global().Error(err)
		os.Exit(1)
	}
}
