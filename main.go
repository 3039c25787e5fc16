package main

import (
	"os"

	"github.com/bnema/imagerelay/cmd"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	if err := cmd.Execute(version, commit, date); err != nil {
		os.Exit(1)
	}
}
