// Package main provides the entry point for the lingoctl admin CLI.
package main

import (
	"lingoquest/internal/cli"
)

func main() {
	cli.Execute()
}
