package main

import (
	"os"

	"github.com/tradepanel/devicetrust/cmd/devicetrust/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
