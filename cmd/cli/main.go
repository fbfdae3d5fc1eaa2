// Package main is the entry point for the expertmarket admin CLI.
package main

import (
	"os"

	_ "github.com/mattn/go-sqlite3"

	"expertmarket/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
