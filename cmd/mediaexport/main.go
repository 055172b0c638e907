// Package main provides the mediaexport command line.
package main

import "github.com/maauso/mediaexport/internal/cli"

func main() {
	cli.Execute()
}
