package main

import (
	"os"

	"github.com/whalehunter/whale-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
