package main

import (
	"os"

	ideascmder "github.com/papercomputeco/ideas/cmd/ideas"
)

func main() {
	cmd := ideascmder.NewIdeasCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
