package main

import (
	"os"

	"github.com/iwvelando/finance-calculators/cmd/finance-calc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
