package main

import (
	"os"

	apotekercmder "github.com/papercomputeco/apoteker/cmd/apoteker"
)

func main() {
	cmd := apotekercmder.NewApotekerCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
