package main

import (
	"os"

	"github.com/named-data/nlsr/cmd"
)

func main() {
	if err := cmd.CmdNlsr.Execute(); err != nil {
		os.Exit(1)
	}
}
